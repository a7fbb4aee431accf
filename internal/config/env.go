package config

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rcliao/memindex/internal/store"
)

// envVar binds one MEMINDEX_* variable to a config field.
type envVar struct {
	name string
	set  func(c *Config, v string) error
}

var envVars = []envVar{
	{"MEMINDEX_MAX_ENTRIES_PER_USER", func(c *Config, v string) (err error) {
		c.Store.MaxEntriesPerUser, err = parseInt(v)
		return err
	}},
	{"MEMINDEX_SWEEP_BATCH", func(c *Config, v string) (err error) {
		c.Store.SweepBatch, err = parseInt(v)
		return err
	}},
	{"MEMINDEX_SWEEP_INTERVAL", durationVar(func(c *Config) *Duration { return &c.Store.SweepInterval })},
	{"MEMINDEX_TTL_CRITICAL", durationVar(func(c *Config) *Duration { return &c.Store.TTL.Critical })},
	{"MEMINDEX_TTL_HIGH", durationVar(func(c *Config) *Duration { return &c.Store.TTL.High })},
	{"MEMINDEX_TTL_MEDIUM", durationVar(func(c *Config) *Duration { return &c.Store.TTL.Medium })},
	{"MEMINDEX_TTL_LOW", durationVar(func(c *Config) *Duration { return &c.Store.TTL.Low })},
	{"MEMINDEX_SEARCH_THRESHOLD", func(c *Config, v string) (err error) {
		c.Search.Threshold, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err
	}},
	{"MEMINDEX_SEARCH_LIMIT", func(c *Config, v string) (err error) {
		c.Search.DefaultLimit, err = parseInt(v)
		return err
	}},
	{"MEMINDEX_SEARCH_CACHE_TTL", durationVar(func(c *Config) *Duration { return &c.Search.CacheTTL })},
	{"MEMINDEX_CACHE_MAX_ITEMS", func(c *Config, v string) (err error) {
		c.Cache.MaxItems, err = strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err
	}},
	{"MEMINDEX_CACHE_TTL", durationVar(func(c *Config) *Duration { return &c.Cache.DefaultTTL })},
	{"MEMINDEX_LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"MEMINDEX_LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = v; return nil }},
	{"MEMINDEX_ID_FORMAT", func(c *Config, v string) error { c.IDs.Format = v; return nil }},
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func durationVar(field func(c *Config) *Duration) func(c *Config, v string) error {
	return func(c *Config, v string) error {
		d, err := store.ParseTTL(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = Duration(d)
		return nil
	}
}

// applyEnv overlays set, non-empty variables. lookup is os.LookupEnv
// outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(c, v); err != nil {
			return fmt.Errorf("env %s: %w", ev.name, err)
		}
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// NewLogger builds the slog logger described by the log section.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := ParseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
