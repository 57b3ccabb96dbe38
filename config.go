package ageclient

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/ageclient/ageclient/internal/connpool"
)

// Config is the immutable configuration a Client is built from. Build
// one with NewConfig and a chain of Option functions, the way
// pgxpool.Config is assembled: a plain struct plus hooks, not a
// builder interface.
type Config struct {
	DSN string

	MaxConns       int32
	MinConns       int32
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration

	// TempSchema holds the staging table and staging functions. An
	// empty string uses the connection's default search_path schema.
	TempSchema string

	// DefaultGraphName is used by Client methods that do not take an
	// explicit graph name.
	DefaultGraphName string

	// DefaultBatchSize is the loader's batch size when Options.BatchSize
	// is left at zero.
	DefaultBatchSize int

	Retry  connpool.RetryPolicy
	Hooks  connpool.Hooks
	Logger zerolog.Logger
}

// Option mutates a Config during NewConfig.
type Option func(*Config)

// NewConfig builds a Config from dsn plus any Options, applying the
// same defaults connpool.Config.withDefaults does for the pool itself.
func NewConfig(dsn string, opts ...Option) *Config {
	cfg := &Config{
		DSN:              dsn,
		MaxConns:         10,
		ConnectTimeout:   10 * time.Second,
		DefaultGraphName: "default_graph",
		DefaultBatchSize: 1000,
		Retry:            connpool.DefaultRetryPolicy(),
		Logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithMaxConns sets the pool's upper bound on live connections.
func WithMaxConns(n int32) Option { return func(c *Config) { c.MaxConns = n } }

// WithMinConns sets the pool's floor; the pool does not eagerly create
// connections up to this floor, it only avoids destroying idle ones
// below it.
func WithMinConns(n int32) Option { return func(c *Config) { c.MinConns = n } }

// WithAcquireTimeout bounds how long Acquire waits for a connection
// before returning ACQUIRE_TIMEOUT.
func WithAcquireTimeout(d time.Duration) Option { return func(c *Config) { c.AcquireTimeout = d } }

// WithIdleTimeout bounds how long an idle connection is kept before
// the pool's eviction loop destroys it.
func WithIdleTimeout(d time.Duration) Option { return func(c *Config) { c.IdleTimeout = d } }

// WithConnectTimeout bounds a single dial attempt.
func WithConnectTimeout(d time.Duration) Option { return func(c *Config) { c.ConnectTimeout = d } }

// WithTempSchema sets the schema holding the staging table/functions.
func WithTempSchema(schema string) Option { return func(c *Config) { c.TempSchema = schema } }

// WithDefaultGraphName sets the graph targeted by calls that do not
// specify one explicitly.
func WithDefaultGraphName(name string) Option {
	return func(c *Config) { c.DefaultGraphName = name }
}

// WithDefaultBatchSize sets the loader's default batch size.
func WithDefaultBatchSize(n int) Option { return func(c *Config) { c.DefaultBatchSize = n } }

// WithRetryPolicy overrides the connection dial retry/backoff policy.
func WithRetryPolicy(policy connpool.RetryPolicy) Option {
	return func(c *Config) { c.Retry = policy }
}

// WithHooks installs connection lifecycle hooks.
func WithHooks(hooks connpool.Hooks) Option { return func(c *Config) { c.Hooks = hooks } }

// WithLogger installs a zerolog.Logger used for pool diagnostics and,
// through a tracelog bridge, driver-level statement tracing.
func WithLogger(logger zerolog.Logger) Option { return func(c *Config) { c.Logger = logger } }

func (c *Config) poolConfig() connpool.Config {
	return connpool.Config{
		DSN:            c.DSN,
		MaxConns:       c.MaxConns,
		MinConns:       c.MinConns,
		AcquireTimeout: c.AcquireTimeout,
		IdleTimeout:    c.IdleTimeout,
		ConnectTimeout: c.ConnectTimeout,
		TempSchema:     c.TempSchema,
		Retry:          c.Retry,
		Hooks:          c.Hooks,
		Logger:         c.Logger,
	}
}
