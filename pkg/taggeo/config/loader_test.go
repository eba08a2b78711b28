package config

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

func TestLoaderDefaults(t *testing.T) {
	loader := Loader{}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if comp.Grammar == nil {
		t.Fatal("Grammar not built")
	}
	if comp.Ranker.TopN != 100 {
		t.Errorf("Ranker.TopN = %d", comp.Ranker.TopN)
	}

	line := `12345678,"2010-01-01 00:00:00",1.5,2.5,http://farm1.static.flickr.com/12/12345678_0123456789.jpg`
	if !comp.Grammar.Match(line) {
		t.Error("default grammar should match the default URL layout")
	}
}

func TestLoaderCustomTemplate(t *testing.T) {
	path := writeConfig(t, "url_template:\n  prefix: https://img\n  common: .example.org/\n  suffix: .png\n")

	comp, err := (&Loader{ConfigPath: path}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	line := `12345678,"2010-01-01 00:00:00",1.5,2.5,https://img1.example.org/12/12345678_0123456789.png`
	if !comp.Grammar.Match(line) {
		t.Error("grammar should follow the configured template")
	}
}

func TestLoaderApply(t *testing.T) {
	path := writeConfig(t, "rank:\n  top_n: 0\n")

	// An override can repair a value the file got wrong
	loader := Loader{ConfigPath: path, Apply: func(c *Config) { c.Rank.TopN = 7 }}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if comp.Ranker.TopN != 7 {
		t.Errorf("Ranker.TopN = %d", comp.Ranker.TopN)
	}

	loader.Apply = nil
	if _, err := loader.Load(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("top_n 0 must fail validation, got %v", err)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	loader := Loader{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := loader.Load(); err == nil {
		t.Error("Load should fail with non-existent config")
	}
}

func TestOpenTable(t *testing.T) {
	ctx := context.Background()

	for _, driver := range []string{DriverMemory, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := Default()
			cfg.Store = Store{Driver: driver, Dir: t.TempDir()}
			comp, err := Build(cfg)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}

			table, err := comp.OpenTable(ctx)
			if err != nil {
				t.Fatalf("OpenTable: %v", err)
			}
			defer table.Close()

			if err := table.Put(ctx, 42, store.GeoRecord{Latitude: 1}); err != nil {
				t.Fatalf("Put: %v", err)
			}
			n, err := table.Len(ctx)
			if err != nil || n != 1 {
				t.Errorf("Len = %d, %v", n, err)
			}
		})
	}
}
