// Package config loads memindex configuration from a YAML file and
// MEMINDEX_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/memindex/internal/cache"
	"github.com/rcliao/memindex/internal/chunker"
	"github.com/rcliao/memindex/internal/ids"
	"github.com/rcliao/memindex/internal/manager"
	"github.com/rcliao/memindex/internal/search"
	"github.com/rcliao/memindex/internal/store"
)

// Duration is a time.Duration that also accepts day units ("7d").
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := store.ParseTTL(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML renders the duration in Go syntax.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Search SearchConfig `yaml:"search"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`
	IDs    IDsConfig    `yaml:"ids"`
}

type StoreConfig struct {
	MaxEntriesPerUser int       `yaml:"max_entries_per_user"`
	SweepBatch        int       `yaml:"sweep_batch"`
	SweepInterval     Duration  `yaml:"sweep_interval"`
	MaxContextDepth   int       `yaml:"max_context_depth"`
	TTL               TTLConfig `yaml:"ttl"`
}

type TTLConfig struct {
	Critical Duration `yaml:"critical"`
	High     Duration `yaml:"high"`
	Medium   Duration `yaml:"medium"`
	Low      Duration `yaml:"low"`
}

type SearchConfig struct {
	Weights      search.Weights `yaml:"weights"`
	Threshold    float64        `yaml:"threshold"`
	DefaultLimit int            `yaml:"default_limit"`
	MaxLimit     int            `yaml:"max_limit"`
	CacheTTL     Duration       `yaml:"cache_ttl"`
}

type CacheConfig struct {
	MaxItems   int64    `yaml:"max_items"`
	DefaultTTL Duration `yaml:"default_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

type IDsConfig struct {
	Format string `yaml:"format"` // ulid or uuid
}

// Default returns the built-in configuration.
func Default() *Config {
	ttl := store.DefaultTTLPolicy()
	return &Config{
		Store: StoreConfig{
			MaxEntriesPerUser: store.DefaultMaxEntriesPerUser,
			SweepBatch:        store.DefaultSweepBatch,
			SweepInterval:     Duration(manager.DefaultSweepInterval),
			MaxContextDepth:   store.DefaultMaxContextDepth,
			TTL: TTLConfig{
				Critical: Duration(ttl.Critical),
				High:     Duration(ttl.High),
				Medium:   Duration(ttl.Medium),
				Low:      Duration(ttl.Low),
			},
		},
		Search: SearchConfig{
			Weights:      search.DefaultWeights(),
			Threshold:    search.DefaultThreshold,
			DefaultLimit: search.DefaultLimit,
			MaxLimit:     search.MaxLimit,
			CacheTTL:     Duration(manager.DefaultSearchTTL),
		},
		Cache: CacheConfig{
			MaxItems:   cache.DefaultMaxItems,
			DefaultTTL: Duration(cache.DefaultTTL),
		},
		Log: LogConfig{Level: "warn", Format: "text"},
		IDs: IDsConfig{Format: "ulid"},
	}
}

// Load reads path over the defaults (a missing path is skipped when it is
// empty), applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Store.MaxEntriesPerUser <= 0 {
		errs = append(errs, fmt.Errorf("store.max_entries_per_user must be positive"))
	}
	if c.Store.SweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("store.sweep_interval must be positive"))
	}
	if err := c.Search.Weights.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		errs = append(errs, fmt.Errorf("search.threshold must be within [0,1]"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := ids.New(c.IDs.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ManagerOptions translates the configuration into manager options.
// Clock, logger and validator are left for the caller.
func (c *Config) ManagerOptions() (manager.Options, error) {
	gen, err := ids.New(c.IDs.Format)
	if err != nil {
		return manager.Options{}, err
	}
	return manager.Options{
		Store: store.Options{
			MaxEntriesPerUser: c.Store.MaxEntriesPerUser,
			SweepBatch:        c.Store.SweepBatch,
			TTL: store.TTLPolicy{
				Critical: c.Store.TTL.Critical.Std(),
				High:     c.Store.TTL.High.Std(),
				Medium:   c.Store.TTL.Medium.Std(),
				Low:      c.Store.TTL.Low.Std(),
			},
		},
		Search: search.Config{
			Weights:      c.Search.Weights,
			Threshold:    c.Search.Threshold,
			DefaultLimit: c.Search.DefaultLimit,
			MaxLimit:     c.Search.MaxLimit,
			Chunker:      chunker.DefaultOptions(),
		},
		Cache: cache.Config{
			MaxItems:   c.Cache.MaxItems,
			DefaultTTL: c.Cache.DefaultTTL.Std(),
		},
		MaxContextDepth: c.Store.MaxContextDepth,
		SweepInterval:   c.Store.SweepInterval.Std(),
		SearchTTL:       c.Search.CacheTTL.Std(),
		IDs:             gen,
	}, nil
}

// Encode writes the configuration as YAML.
func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}
