package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/taggeo/taggeo/pkg/taggeo/parse"
	"github.com/taggeo/taggeo/pkg/taggeo/rank"
)

// Store drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// ErrInvalidConfig wraps every validation failure returned by Build.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the YAML configuration file
type Config struct {
	URLTemplate      parse.URLTemplate `yaml:"url_template"`
	Rank             Rank              `yaml:"rank"`
	Ultimate         Ultimate          `yaml:"ultimate"`
	Store            Store             `yaml:"store"`
	ProgressInterval time.Duration     `yaml:"progress_interval"`
}

// Rank configures the ultimate stage ranking
type Rank struct {
	TopN   int  `yaml:"top_n"`
	Strict bool `yaml:"strict"`
}

// Ultimate holds the fixed file names of the ultimate stage
type Ultimate struct {
	Dir       string `yaml:"dir"`
	TagPP     string `yaml:"tag_pp"`
	GeotagPP  string `yaml:"geotag_pp"`
	TagOut    string `yaml:"tag_out"`
	GeotagOut string `yaml:"geotag_out"`
}

// Path joins name onto the ultimate directory.
func (u Ultimate) Path(name string) string {
	return filepath.Join(u.Dir, name)
}

// Store selects the geotag table backend
type Store struct {
	Driver string `yaml:"driver"`
	// Dir is the parent of the sqlite scratch directory; empty means os.TempDir().
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		URLTemplate: parse.DefaultURLTemplate,
		Rank:        Rank{TopN: rank.DefaultTopN},
		Ultimate: Ultimate{
			Dir:       ".",
			TagPP:     "tag_pp.csv",
			GeotagPP:  "geotag_pp.csv",
			TagOut:    "tag_ultimate.csv",
			GeotagOut: "geotag_ultimate.csv",
		},
		Store:            Store{Driver: DriverMemory},
		ProgressInterval: 5 * time.Second,
	}
}

// LoadConfig reads a YAML file over the defaults. Keys missing from the
// file keep their default value. The result is not validated.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no stage can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.URLTemplate.Prefix == "" {
		errs = append(errs, errors.New("url_template.prefix is empty"))
	}
	if c.Rank.TopN < 1 {
		errs = append(errs, fmt.Errorf("rank.top_n must be at least 1, got %d", c.Rank.TopN))
	}
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	for key, name := range map[string]string{
		"tag_pp":     c.Ultimate.TagPP,
		"geotag_pp":  c.Ultimate.GeotagPP,
		"tag_out":    c.Ultimate.TagOut,
		"geotag_out": c.Ultimate.GeotagOut,
	} {
		if name == "" {
			errs = append(errs, fmt.Errorf("ultimate.%s is empty", key))
		}
	}
	return errors.Join(errs...)
}
