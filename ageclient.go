// Package ageclient is a schema-aware client for a relational database
// extended with a Cypher-speaking graph engine. It pools connections
// with lifecycle hooks, stages dynamic values through a server-side
// parameter table so Cypher bodies can remain literal strings, and
// bulk-loads vertices and edges under one transaction with progress
// reporting.
package ageclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/ageclient/ageclient/internal/connpool"
	"github.com/ageclient/ageclient/internal/executor"
	"github.com/ageclient/ageclient/internal/loader"
	"github.com/ageclient/ageclient/internal/querybuilder"
	"github.com/ageclient/ageclient/internal/schema"
	"github.com/ageclient/ageclient/internal/txn"
)

var (
	defaultPoolOnce sync.Once
	defaultPool     *Client
	defaultPoolErr  error
)

// DefaultPool lazily connects a process-wide Client from cfg the first
// time it is called, and returns the same Client on every subsequent
// call regardless of cfg. It exists for callers that want a single
// shared pool without threading a *Client through their own call graph;
// nothing in this package requires it.
func DefaultPool(ctx context.Context, cfg *Config) (*Client, error) {
	defaultPoolOnce.Do(func() {
		defaultPool, defaultPoolErr = Connect(ctx, cfg)
	})
	return defaultPool, defaultPoolErr
}

// Client is the public facade over the connection pool, executor,
// staging protocol, transaction manager, and batch loader.
type Client struct {
	cfg  *Config
	pool *connpool.Pool
}

// Connect builds the connection pool described by cfg. It does not
// dial eagerly; the first operation pays the connection cost.
func Connect(ctx context.Context, cfg *Config) (*Client, error) {
	pool, err := connpool.New(ctx, cfg.poolConfig())
	if err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, pool: pool}, nil
}

// Close shuts the pool down.
func (c *Client) Close() { c.pool.Close() }

// PoolStats reports current pool occupancy.
func (c *Client) PoolStats() connpool.Stats { return c.pool.Stats() }

// CreateGraph creates a new graph catalog entry. name is passed as a
// bind parameter; create_graph is an ordinary SQL function, not a
// Cypher body, so normal parameterization applies.
func (c *Client) CreateGraph(ctx context.Context, name string) error {
	_, err := c.ExecuteSQL(ctx, "SELECT create_graph($1)", name)
	return err
}

// DropGraph drops a graph catalog entry and everything in it.
func (c *Client) DropGraph(ctx context.Context, name string) error {
	_, err := c.ExecuteSQL(ctx, "SELECT drop_graph($1, true)", name)
	return err
}

// ExecuteSQL runs an ordinary parameterized relational statement on a
// freshly borrowed connection.
func (c *Client) ExecuteSQL(ctx context.Context, sql string, args ...any) (*executor.Result, error) {
	var result *executor.Result
	err := c.pool.WithConnection(ctx, "Client.ExecuteSQL", func(ctx context.Context, conn *connpool.Connection) error {
		r, err := executor.ExecuteSQL(ctx, conn, sql, args...)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// ExecuteCypher runs cypher against the client's default graph,
// staging params first.
func (c *Client) ExecuteCypher(ctx context.Context, cypher string, params map[string]any, columns []executor.Column) (*executor.Result, error) {
	return c.ExecuteCypherOn(ctx, c.cfg.DefaultGraphName, cypher, params, columns)
}

// ExecuteCypherOn is ExecuteCypher against an explicit graph name.
func (c *Client) ExecuteCypherOn(ctx context.Context, graphName, cypher string, params map[string]any, columns []executor.Column) (*executor.Result, error) {
	var result *executor.Result
	err := c.pool.WithConnection(ctx, "Client.ExecuteCypher", func(ctx context.Context, conn *connpool.Connection) error {
		r, err := executor.ExecuteCypher(ctx, conn, c.cfg.TempSchema, cypher, params, graphName, columns)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// TraceCypher runs EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON) against the
// statement cypher would compile to, on the client's default graph.
func (c *Client) TraceCypher(ctx context.Context, cypher string, params map[string]any, columns []executor.Column) (*executor.TraceResult, error) {
	var result *executor.TraceResult
	err := c.pool.WithConnection(ctx, "Client.TraceCypher", func(ctx context.Context, conn *connpool.Connection) error {
		r, err := executor.TraceCypher(ctx, conn, c.cfg.TempSchema, cypher, params, c.cfg.DefaultGraphName, columns)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

// Query starts a fluent builder targeting the client's default graph.
func (c *Client) Query() *querybuilder.Builder {
	return querybuilder.New(c.cfg.DefaultGraphName)
}

// Run executes a Built statement assembled by a querybuilder.Builder.
func (c *Client) Run(ctx context.Context, built querybuilder.Built, columns []executor.Column) (*executor.Result, error) {
	return c.ExecuteCypherOn(ctx, built.GraphName, built.Cypher, built.StagedParams, columns)
}

// LoadGraphData batch-loads vertices and edges validated against sch.
// Zero-valued fields in opts (GraphName, TempSchema, BatchSize) fall
// back to the client's configured defaults.
func (c *Client) LoadGraphData(ctx context.Context, sch *schema.Schema, data loader.Data, opts loader.Options) error {
	if opts.GraphName == "" {
		opts.GraphName = c.cfg.DefaultGraphName
	}
	if opts.TempSchema == "" {
		opts.TempSchema = c.cfg.TempSchema
	}
	if opts.BatchSize == 0 {
		opts.BatchSize = c.cfg.DefaultBatchSize
	}
	return loader.Load(ctx, c.pool, sch, data, opts)
}

// Tx is a transaction bound to one borrowed connection. The connection
// is released back to the pool when the Tx is closed via Commit or
// Rollback, never before.
type Tx struct {
	client *Client
	conn   *connpool.Connection
	inner  *txn.Transaction
	closed bool
}

// Begin acquires a connection and starts a transaction on it.
func (c *Client) Begin(ctx context.Context) (*Tx, error) {
	conn, err := c.pool.Acquire(ctx, "Client.Begin")
	if err != nil {
		return nil, err
	}
	t, err := txn.Begin(ctx, conn)
	if err != nil {
		c.pool.Release(ctx, conn, connpool.OutcomeError)
		return nil, err
	}
	return &Tx{client: c, conn: conn, inner: t}, nil
}

func (t *Tx) finish(ctx context.Context, outcome connpool.Outcome) {
	if t.closed {
		return
	}
	t.closed = true
	t.client.pool.Release(ctx, t.conn, outcome)
}

// Commit commits the transaction and releases its connection.
func (t *Tx) Commit(ctx context.Context) error {
	if t.closed {
		return fmt.Errorf("ageclient: transaction already closed")
	}
	err := t.inner.Commit(ctx)
	outcome := connpool.OutcomeSuccess
	if err != nil {
		outcome = connpool.OutcomeError
	}
	t.finish(ctx, outcome)
	return err
}

// Rollback rolls the transaction back and releases its connection.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.closed {
		return nil
	}
	err := t.inner.Rollback(ctx)
	t.finish(ctx, connpool.OutcomeSuccess)
	return err
}

// Savepoint creates a named savepoint.
func (t *Tx) Savepoint(ctx context.Context, name string) error { return t.inner.Savepoint(ctx, name) }

// ReleaseSavepoint releases a named savepoint.
func (t *Tx) ReleaseSavepoint(ctx context.Context, name string) error {
	return t.inner.ReleaseSavepoint(ctx, name)
}

// RollbackTo rolls back to a named savepoint without ending the
// transaction.
func (t *Tx) RollbackTo(ctx context.Context, name string) error {
	return t.inner.RollbackTo(ctx, name)
}

// ExecuteSQL runs a parameterized relational statement within the
// transaction.
func (t *Tx) ExecuteSQL(ctx context.Context, sql string, args ...any) (*executor.Result, error) {
	return executor.ExecuteSQL(ctx, t.inner, sql, args...)
}

// ExecuteCypher runs cypher against graphName within the transaction.
func (t *Tx) ExecuteCypher(ctx context.Context, graphName, cypher string, params map[string]any, columns []executor.Column) (*executor.Result, error) {
	return executor.ExecuteCypher(ctx, t.inner, t.client.cfg.TempSchema, cypher, params, graphName, columns)
}
