// Package manager is the public surface over the memory store: it validates
// input, assigns ids, ranks searches and runs the periodic sweep.
//
// Every operation returns a Result rather than an error. Operations called
// before Initialize or after Shutdown fail with CodeNotInitialized.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rcliao/memindex/internal/cache"
	"github.com/rcliao/memindex/internal/clock"
	"github.com/rcliao/memindex/internal/ids"
	"github.com/rcliao/memindex/internal/model"
	"github.com/rcliao/memindex/internal/schema"
	"github.com/rcliao/memindex/internal/search"
	"github.com/rcliao/memindex/internal/store"
)

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultSearchTTL     = 30 * time.Second
)

// Validator turns raw input into a typed record or reports every violated
// field as a *schema.ValidationError.
type Validator interface {
	Validate(t model.MemoryType, raw map[string]any) (*model.Memory, error)
}

// Options configures a Manager. Zero values select defaults.
type Options struct {
	Store           store.Options
	Search          search.Config
	Cache           cache.Config
	MaxContextDepth int
	SweepInterval   time.Duration
	SearchTTL       time.Duration

	Clock     clock.Clock
	IDs       ids.Generator
	Validator Validator
	Logger    *slog.Logger
}

type state int32

const (
	stateNew state = iota
	stateReady
	stateClosed
)

// Manager orchestrates the store, search engine, context registry and cache.
type Manager struct {
	state atomic.Int32

	store     *store.IndexedStore
	contexts  *store.Contexts
	engine    *search.Engine
	cache     *cache.Cache
	validator Validator
	ids       ids.Generator
	clock     clock.Clock
	log       *slog.Logger

	sweepInterval time.Duration
	searchTTL     time.Duration

	cronMu sync.Mutex
	cron   *cron.Cron
}

// New wires a Manager. It must be initialized before use.
func New(opts Options) (*Manager, error) {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.IDs == nil {
		opts.IDs = ids.NewULID()
	}
	if opts.Validator == nil {
		opts.Validator = schema.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.SearchTTL <= 0 {
		opts.SearchTTL = DefaultSearchTTL
	}
	if opts.Search.Weights == (search.Weights{}) {
		opts.Search = search.DefaultConfig()
	}

	opts.Store.Clock = opts.Clock
	opts.Store.Logger = opts.Logger
	opts.Search.Clock = opts.Clock
	opts.Cache.Clock = opts.Clock
	opts.Cache.Logger = opts.Logger

	st := store.New(opts.Store)
	engine, err := search.NewEngine(st, opts.Search)
	if err != nil {
		return nil, fmt.Errorf("create manager: %w", err)
	}
	c, err := cache.New(opts.Cache)
	if err != nil {
		return nil, fmt.Errorf("create manager: %w", err)
	}

	return &Manager{
		store:         st,
		contexts:      store.NewContexts(opts.MaxContextDepth),
		engine:        engine,
		cache:         c,
		validator:     opts.Validator,
		ids:           opts.IDs,
		clock:         opts.Clock,
		log:           opts.Logger.With("component", "manager"),
		sweepInterval: opts.SweepInterval,
		searchTTL:     opts.SearchTTL,
	}, nil
}

// Initialize makes the manager usable and schedules the periodic sweep.
func (m *Manager) Initialize() error {
	if !m.state.CompareAndSwap(int32(stateNew), int32(stateReady)) {
		return fmt.Errorf("initialize: manager already initialized or shut down")
	}

	c := cron.New(
		cron.WithLogger(cronLogger{m.log}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{m.log})),
	)
	spec := "@every " + m.sweepInterval.String()
	if _, err := c.AddFunc(spec, m.scheduledSweep); err != nil {
		m.state.Store(int32(stateNew))
		return fmt.Errorf("schedule sweep %q: %w", spec, err)
	}
	c.Start()

	m.cronMu.Lock()
	m.cron = c
	m.cronMu.Unlock()

	m.log.Info("manager initialized", "sweep_interval", m.sweepInterval)
	return nil
}

// Shutdown stops the sweep schedule, waits for a running sweep to finish
// (or ctx to end) and releases the cache. Later calls fail with
// CodeNotInitialized.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(stateReady), int32(stateClosed)) {
		return ErrNotInitialized
	}

	m.cronMu.Lock()
	c := m.cron
	m.cron = nil
	m.cronMu.Unlock()

	var err error
	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			err = fmt.Errorf("shutdown: waiting for sweep: %w", ctx.Err())
		}
	}
	m.cache.Close()
	m.log.Info("manager shut down")
	return err
}

func (m *Manager) ready() error {
	if state(m.state.Load()) != stateReady {
		return ErrNotInitialized
	}
	return nil
}

func (m *Manager) scheduledSweep() {
	if m.ready() != nil {
		return
	}
	removed := m.sweep()
	m.log.Debug("scheduled sweep", "removed", removed)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
