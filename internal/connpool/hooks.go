package connpool

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Hooks are plain function values invoked at fixed points in a
// connection's life. There is no interface to implement and no
// inheritance hierarchy to subclass: a caller who wants a hook sets the
// corresponding field and leaves the rest nil.
type Hooks struct {
	// BeforeConnect runs once per physical connection attempt, before
	// the network dial, and may mutate cfg (e.g. to rotate a password).
	BeforeConnect func(ctx context.Context, cfg *pgx.ConnConfig) error

	// OnConnect runs once per new physical connection, after the
	// mandatory AGE bootstrap (extension load, search_path, staging
	// table and functions) has already completed successfully.
	OnConnect func(ctx context.Context, conn *Connection) error

	// OnAcquire runs every time a connection is handed to a caller,
	// after acquisition-site tagging.
	OnAcquire func(ctx context.Context, conn *Connection) error

	// OnRelease runs every time a connection is returned to the pool,
	// before the pool decides whether to keep it idle or destroy it.
	// Staged-parameter cleanup (internal/staging.ClearParams) always
	// runs ahead of this hook, not instead of it.
	OnRelease func(ctx context.Context, conn *Connection) error

	// OnError runs when Release destroys a connection instead of
	// returning it to the idle set (it was released with OutcomeError or
	// is in the ERROR state), for metrics or alerting. It cannot veto the
	// destruction.
	OnError func(ctx context.Context, conn *Connection, err error)
}

func (h Hooks) beforeConnect(ctx context.Context, cfg *pgx.ConnConfig) error {
	if h.BeforeConnect == nil {
		return nil
	}
	return h.BeforeConnect(ctx, cfg)
}

func (h Hooks) onConnect(ctx context.Context, conn *Connection) error {
	if h.OnConnect == nil {
		return nil
	}
	return h.OnConnect(ctx, conn)
}

func (h Hooks) onAcquire(ctx context.Context, conn *Connection) error {
	if h.OnAcquire == nil {
		return nil
	}
	return h.OnAcquire(ctx, conn)
}

func (h Hooks) onRelease(ctx context.Context, conn *Connection) error {
	if h.OnRelease == nil {
		return nil
	}
	return h.OnRelease(ctx, conn)
}

func (h Hooks) onError(ctx context.Context, conn *Connection, err error) {
	if h.OnError == nil {
		return
	}
	h.OnError(ctx, conn, err)
}
