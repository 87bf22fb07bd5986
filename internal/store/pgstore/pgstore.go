// Package pgstore is the PostgreSQL backing for every internal/store (and
// scope/passwordpolicy/mfa/bruteforce) repository interface, used by
// cmd/server in production. memstore remains the backing exercised by
// every unit test in this repository; pgstore is not itself tested here
// since it has no substitute for a live database — see
// buildDependencies in cmd/server for how the two are selected.
//
// Realm isolation is enforced the way the teacher enforces tenant
// isolation: a transaction-scoped `SET LOCAL app.current_realm` session
// variable consumed by each table's row-level-security policy, rather
// than relying on every query to remember its own WHERE realm_id = $1.
// Methods whose interface signature carries a realmID open their
// transaction with WithRealmContext; methods that only carry a user,
// session, or hash key (several of the store interfaces are shaped this
// way — a refresh-token lookup by hash has no realm to scope on until
// after the row is read) fall back to WithoutRLS, mirroring the
// teacher's own use of that escape hatch for audit writes and
// background jobs.
package pgstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgres opens and pings a connection pool against dsn.
func NewPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgstore: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("pgstore: ping: %w", err)
	}
	return pool, nil
}

// Store is the concrete repository backing every store interface, over a
// shared pool. It carries no other state: callers construct one per
// process and share it across goroutines, same as the pool itself.
type Store struct {
	Pool *pgxpool.Pool
}

// New wraps pool in a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// WithRealmContext runs fn inside a transaction with app.current_realm set
// for the duration, per the teacher's WithTenantContext.
func WithRealmContext(ctx context.Context, pool *pgxpool.Pool, realmID uuid.UUID, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_realm', $1, true)", realmID.String()); err != nil {
		return fmt.Errorf("pgstore: set realm context: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// WithoutRLS runs fn inside a transaction with no realm session variable
// set, for lookups that are keyed by something other than a realm (a
// token hash, a session ID) and so have no realm to scope on until after
// the row comes back. Used sparingly, same as the teacher's equivalent.
func WithoutRLS(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) realm(realmID uuid.UUID, fn func(tx pgx.Tx) error) error {
	return WithRealmContext(context.Background(), s.Pool, realmID, fn)
}

func (s *Store) system(fn func(tx pgx.Tx) error) error {
	return WithoutRLS(context.Background(), s.Pool, fn)
}

// ctx is the background context used for the statement run inside the
// transaction fn passed to realm/system above; the store interfaces
// predate context-threading (see internal/store.go) so there is no
// caller-supplied context to pass down to the statement itself.
func ctx() context.Context {
	return context.Background()
}
