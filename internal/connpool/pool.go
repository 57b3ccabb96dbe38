// Package connpool is the connection pool with extension lifecycle
// hooks. It is built directly on jackc/puddle/v2, the
// same resource-pool primitive pgxpool.Pool itself is built on, rather
// than wrapping pgxpool.Pool, because the AGE bootstrap and the
// staging-cleanup-on-release step need to run inside the constructor
// and destructor pgxpool does not expose as hook points.
package connpool

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/jackc/puddle/v2"
	"github.com/rs/zerolog"

	"github.com/ageclient/ageclient/internal/staging"
	"github.com/ageclient/ageclient/internal/xerrors"
)

// RetryPolicy governs the exponential backoff with jitter used when a
// new physical connection fails to dial or fails the AGE bootstrap.
type RetryPolicy struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64 // fraction of the computed delay, e.g. 0.2
}

// DefaultRetryPolicy mirrors the backoff shape used for pgx dial retries
// in the pack's bulk-loader example: a handful of attempts, doubling
// delay, capped, with enough jitter to avoid a thundering herd.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   5,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.2,
	}
}

// Config configures a Pool. Hooks and Logger are functional-style plain
// fields rather than options to keep Pool construction a single literal,
// matching pgxpool.Config's own shape.
type Config struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	TempSchema     string
	Retry          RetryPolicy
	Hooks          Hooks
	Logger         zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxConns <= 0 {
		c.MaxConns = 10
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = DefaultRetryPolicy()
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	return c
}

// Outcome tells Release whether the statement(s) run on a connection
// succeeded, so the pool knows whether to keep the connection idle or
// route it through ERROR-state recovery.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
)

// Pool is a bounded pool of AGE-bootstrapped connections with lifecycle
// hooks, acquire timeouts, and idle eviction.
type Pool struct {
	cfg     Config
	res     *puddle.Pool[*Connection]
	logger  zerolog.Logger
	waiting atomic.Int64
	closed  atomic.Bool
}

// New builds a Pool. It does not eagerly create MinConns connections;
// the first Acquire calls pay the dial cost.
func New(ctx context.Context, cfg Config) (*Pool, error) {
	cfg = cfg.withDefaults()

	// Parsed once up front purely to fail fast on a malformed DSN; each
	// dial below reparses fresh from cfg.DSN so every physical
	// connection gets its own *pgx.ConnConfig instance rather than one
	// shared, mutable copy.
	if _, err := pgx.ParseConfig(cfg.DSN); err != nil {
		return nil, xerrors.Wrap(xerrors.KindConfig, "parse connection string", err)
	}

	p := &Pool{cfg: cfg, logger: cfg.Logger}

	puddleCfg := &puddle.Config[*Connection]{
		MaxSize: cfg.MaxConns,
		Constructor: func(ctx context.Context) (*Connection, error) {
			connCfg, err := pgx.ParseConfig(p.cfg.DSN)
			if err != nil {
				return nil, err
			}
			return p.construct(ctx, connCfg)
		},
		Destructor: func(conn *Connection) {
			conn.markClosed()
			conn.raw.Close(context.Background())
		},
	}
	res, err := puddle.NewPool(puddleCfg)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.KindConfig, "build connection pool", err)
	}
	p.res = res
	if cfg.IdleTimeout > 0 {
		go p.evictIdleLoop()
	}
	return p, nil
}

// evictIdleLoop periodically destroys idle connections that have sat
// unused past IdleTimeout, never taking the pool below MinConns,
// mirroring pgxpool's backgroundHealthCheck
// loop built around puddle's AcquireAllIdle.
func (p *Pool) evictIdleLoop() {
	period := p.cfg.IdleTimeout / 2
	if period < time.Second {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		if p.closed.Load() {
			return
		}
		idle := p.res.AcquireAllIdle()
		total := p.res.Stat().TotalResources()
		for _, res := range idle {
			if res.IdleDuration() > p.cfg.IdleTimeout && total > p.cfg.MinConns {
				res.Destroy()
				total--
			} else {
				res.ReleaseUnused()
			}
		}
	}
}

// construct dials one physical connection, retrying with exponential
// backoff and jitter, then runs beforeConnect/onConnect hooks around
// the mandatory AGE bootstrap.
func (p *Pool) construct(ctx context.Context, connCfg *pgx.ConnConfig) (*Connection, error) {
	policy := p.cfg.Retry
	delay := policy.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		conn, err := p.dialOnce(ctx, connCfg)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		p.logger.Warn().Err(err).Int("attempt", attempt).Msg("connpool: dial failed")

		if attempt == policy.MaxAttempts {
			break
		}
		jittered := delay
		if policy.Jitter > 0 {
			spread := float64(delay) * policy.Jitter
			jittered = delay + time.Duration(rand.Float64()*2*spread-spread)
		}
		select {
		case <-ctx.Done():
			return nil, xerrors.Wrap(xerrors.KindCancelled, "connection dial cancelled", ctx.Err())
		case <-time.After(jittered):
		}
		delay = time.Duration(float64(delay) * policy.BackoffFactor)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return nil, xerrors.Wrap(xerrors.KindConnection, "exhausted connection retries", lastErr)
}

func (p *Pool) dialOnce(ctx context.Context, connCfg *pgx.ConnConfig) (*Connection, error) {
	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	if err := p.cfg.Hooks.beforeConnect(dialCtx, connCfg); err != nil {
		return nil, fmt.Errorf("beforeConnect: %w", err)
	}
	connCfg.Tracer = &tracelog.TraceLog{
		Logger:   NewTraceLogger(p.logger),
		LogLevel: tracelog.LogLevelInfo,
	}
	raw, err := pgx.ConnectConfig(dialCtx, connCfg)
	if err != nil {
		return nil, err
	}
	conn := newConnection(raw, p.cfg.TempSchema)

	if err := bootstrapAGEExtension(dialCtx, raw); err != nil {
		raw.Close(context.Background())
		return nil, fmt.Errorf("age bootstrap: %w", err)
	}
	if err := staging.Bootstrap(dialCtx, raw, p.cfg.TempSchema); err != nil {
		raw.Close(context.Background())
		return nil, fmt.Errorf("age bootstrap: %w", err)
	}
	if err := p.cfg.Hooks.onConnect(dialCtx, conn); err != nil {
		raw.Close(context.Background())
		return nil, fmt.Errorf("onConnect: %w", err)
	}
	return conn, nil
}

func bootstrapAGEExtension(ctx context.Context, raw *pgx.Conn) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS age`,
		`LOAD 'age'`,
		`SET search_path = ag_catalog, "$user", public`,
	}
	for _, stmt := range stmts {
		if _, err := raw.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Acquire blocks until a connection is available, AcquireTimeout
// elapses, or ctx is cancelled, in FIFO order among concurrent waiters
// (puddle's own waiter queue). site labels the caller for leak
// diagnosis (e.g. "loader.loadVertices").
func (p *Pool) Acquire(ctx context.Context, site string) (*Connection, error) {
	if p.closed.Load() {
		return nil, xerrors.New(xerrors.KindConnection, "pool is closed", nil, nil)
	}

	acquireCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.AcquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	p.waiting.Add(1)
	res, err := p.res.Acquire(acquireCtx)
	p.waiting.Add(-1)
	if err != nil {
		if ctx.Err() == nil && acquireCtx.Err() != nil {
			return nil, xerrors.Wrap(xerrors.KindAcquireTimeout, "timed out waiting for a connection", acquireCtx.Err())
		}
		return nil, xerrors.Wrap(xerrors.KindCancelled, "acquire cancelled", err)
	}

	conn := res.Value()
	conn.res = res
	conn.setAcquisitionSite(site)

	if err := p.cfg.Hooks.onAcquire(ctx, conn); err != nil {
		p.Release(ctx, conn, OutcomeError)
		return nil, xerrors.Wrap(xerrors.KindConnection, "onAcquire hook failed", err)
	}
	return conn, nil
}

// Release returns conn to the pool. outcome controls recovery: a
// connection released with OutcomeError, or one that has independently
// entered StateError, is destroyed rather than returned to the idle set.
// OnRelease and the staging-table truncation always run first, so a
// caller's staged parameters can never leak to the next acquirer even
// when the connection is about to be destroyed.
func (p *Pool) Release(ctx context.Context, conn *Connection, outcome Outcome) {
	if err := staging.ClearParams(ctx, conn.raw, conn.tempSchema); err != nil {
		p.logger.Warn().Err(err).Str("connection_id", conn.id.String()).Msg("connpool: clear staged params failed")
		outcome = OutcomeError
	}
	if err := p.cfg.Hooks.onRelease(ctx, conn); err != nil {
		p.logger.Warn().Err(err).Str("connection_id", conn.id.String()).Msg("connpool: onRelease hook failed")
	}

	if outcome == OutcomeError || conn.State() == StateError {
		p.cfg.Hooks.onError(ctx, conn, xerrors.New(xerrors.KindConnection, "connection destroyed on release", nil, nil))
		conn.res.Destroy()
		return
	}
	conn.markIdle()
	conn.res.Release()
}

// WithConnection acquires a connection, runs fn, and always releases it,
// classifying the outcome from fn's returned error.
func (p *Pool) WithConnection(ctx context.Context, site string, fn func(ctx context.Context, conn *Connection) error) error {
	conn, err := p.Acquire(ctx, site)
	if err != nil {
		return err
	}
	outcome := OutcomeSuccess
	defer func() {
		p.Release(ctx, conn, outcome)
	}()
	if err := fn(ctx, conn); err != nil {
		outcome = OutcomeError
		return err
	}
	return nil
}

// Stats reports current pool occupancy for the pool-stats CLI
// subcommand and for tests asserting on acquire/release behavior.
type Stats struct {
	Total   int32
	Idle    int32
	Active  int32
	Max     int32
	Waiting int64
}

func (p *Pool) Stats() Stats {
	stat := p.res.Stat()
	return Stats{
		Total:   stat.TotalResources(),
		Idle:    stat.IdleResources(),
		Active:  stat.AcquiredResources(),
		Max:     stat.MaxResources(),
		Waiting: p.waiting.Load(),
	}
}

// Close shuts the pool down, destroying idle connections immediately
// and in-use connections as they are released.
func (p *Pool) Close() {
	p.closed.Store(true)
	p.res.Close()
}
