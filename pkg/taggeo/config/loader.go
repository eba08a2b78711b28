package config

import (
	"context"
	"fmt"

	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/rank"
	"github.com/taggeo/taggeo/pkg/taggeo/store"
	"github.com/taggeo/taggeo/pkg/taggeo/store/memstore"
	"github.com/taggeo/taggeo/pkg/taggeo/store/sqlite"
)

// Loader loads the configuration file and constructs components
type Loader struct {
	ConfigPath string

	// Apply, when set, adjusts the configuration before it is validated.
	Apply func(*Config)
}

// Components holds everything the stages need, built from one Config
type Components struct {
	Config  *Config
	Grammar *parse.Grammar
	Ranker  rank.Ranker
}

// Load reads the configuration file, or the defaults when ConfigPath is
// empty, and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg := Default()
	if l.ConfigPath != "" {
		loaded, err := LoadConfig(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if l.Apply != nil {
		l.Apply(cfg)
	}
	return Build(cfg)
}

// Build validates cfg and constructs components from it.
func Build(cfg *Config) (*Components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	grammar, err := parse.NewGrammar(cfg.URLTemplate)
	if err != nil {
		return nil, err
	}

	return &Components{
		Config:  cfg,
		Grammar: grammar,
		Ranker:  rank.Ranker{TopN: cfg.Rank.TopN, Strict: cfg.Rank.Strict},
	}, nil
}

// OpenTable opens an empty geotag table on the configured driver.
func (c *Components) OpenTable(ctx context.Context) (store.Table, error) {
	switch c.Config.Store.Driver {
	case DriverSQLite:
		table, err := sqlite.OpenScratch(ctx, c.Config.Store.Dir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite table: %w", err)
		}
		return table, nil
	default:
		return memstore.New(), nil
	}
}
