package connpool

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"

	"github.com/ageclient/ageclient/internal/xerrors"
)

// State is the lifecycle state of a pooled connection, per the
// CREATING -> IDLE <-> ACTIVE -> (IDLE|ERROR) -> CLOSED state machine.
type State int

const (
	StateIdle State = iota
	StateActive
	StateError
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	case StateError:
		return "ERROR"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Connection wraps one physical pgx connection with the state tracking,
// acquisition-site tagging, and param-staging hygiene the pool needs.
// It is the T in puddle.Pool[*Connection]; the pool never hands out a
// bare *pgx.Conn.
type Connection struct {
	mu              sync.Mutex
	id              uuid.UUID
	raw             *pgx.Conn
	state           State
	tempSchema      string
	lastStatement   string
	lastStatementAt time.Time
	acquiredAt      time.Time
	acquisitionSite string

	res *puddle.Resource[*Connection]
}

func newConnection(raw *pgx.Conn, tempSchema string) *Connection {
	return &Connection{
		id:         uuid.New(),
		raw:        raw,
		state:      StateIdle,
		tempSchema: tempSchema,
	}
}

// ID identifies the connection for leak diagnosis and log correlation.
func (c *Connection) ID() uuid.UUID { return c.id }

// Raw returns the underlying pgx connection for operations the pool
// does not itself wrap (COPY, LISTEN/NOTIFY, etc.).
func (c *Connection) Raw() *pgx.Conn { return c.raw }

// State returns the connection's current lifecycle state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// TempSchema is the schema holding the staging table and functions.
func (c *Connection) TempSchema() string { return c.tempSchema }

// AcquisitionSite is the caller-supplied label passed to the pool at
// Acquire time, used to diagnose held connections that never release.
func (c *Connection) AcquisitionSite() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquisitionSite
}

func (c *Connection) setAcquisitionSite(site string) {
	c.mu.Lock()
	c.acquisitionSite = site
	c.acquiredAt = time.Now()
	c.mu.Unlock()
}

func (c *Connection) markActive(statement string) {
	c.mu.Lock()
	c.state = StateActive
	c.lastStatement = statement
	c.lastStatementAt = time.Now()
	c.mu.Unlock()
}

func (c *Connection) markIdle() {
	c.mu.Lock()
	if c.state != StateClosed {
		c.state = StateIdle
	}
	c.mu.Unlock()
}

func (c *Connection) markError(err error) {
	c.mu.Lock()
	if c.state != StateClosed {
		c.state = StateError
	}
	c.mu.Unlock()
}

func (c *Connection) markClosed() {
	c.mu.Lock()
	c.state = StateClosed
	c.mu.Unlock()
}

// Exec, Query and QueryRow satisfy the statement-level querier contract
// used by internal/executor and internal/staging. Each marks the
// connection ACTIVE. Exec then marks it IDLE or ERROR by its result;
// Query marks it ERROR only when the call itself fails and otherwise
// leaves it ACTIVE; QueryRow leaves it ACTIVE. Release marks a kept
// connection IDLE.
func (c *Connection) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	c.markActive(sql)
	tag, err := c.raw.Exec(ctx, sql, args...)
	if err != nil {
		c.markError(err)
		return tag, err
	}
	c.markIdle()
	return tag, nil
}

func (c *Connection) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	c.markActive(sql)
	rows, err := c.raw.Query(ctx, sql, args...)
	if err != nil {
		c.markError(err)
		return nil, err
	}
	return rows, nil
}

func (c *Connection) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	c.markActive(sql)
	return c.raw.QueryRow(ctx, sql, args...)
}

// ClassifyError maps a driver error into the public error taxonomy.
func ClassifyError(err error) xerrors.Kind {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "23503" || pgErr.Code == "23505":
			return xerrors.KindReferentialIntegrity
		default:
			return xerrors.KindStatement
		}
	}
	return xerrors.KindConnection
}
