// Package store provides the queryable relational store the engine runs
// against. A Store handle is opened explicitly, passed to the components
// that need it, and closed by its owner; there is no package-level
// connection state.
package store

import (
	"context"
	"regexp"

	"github.com/rotisserie/eris"
)

// Rows is the cursor surface shared by the pgx and database/sql backends.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier executes statements against the store or an open transaction.
type Querier interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	Query(ctx context.Context, query string, args ...any) (Rows, error)
}

// Tx is an open transaction.
type Tx interface {
	Querier
	// Savepoint runs fn inside a nested savepoint. An error from fn rolls
	// back only the work done inside the savepoint; the transaction stays
	// usable.
	Savepoint(ctx context.Context, fn func(Querier) error) error
}

// Store is a handle on the backing relational store.
type Store interface {
	Querier

	// Dialect describes the SQL flavour spoken by the backend.
	Dialect() Dialect

	// InTx runs fn in a transaction. The transaction commits only if fn
	// returns nil; otherwise every statement issued through the Tx is
	// rolled back.
	InTx(ctx context.Context, fn func(Tx) error) error

	// HasTable reports whether a table or view with the given name exists.
	HasTable(ctx context.Context, name string) (bool, error)

	// Migrate creates the relations owned by the engine.
	Migrate(ctx context.Context) error

	Close() error
}

// Options tunes a backend when it is opened.
type Options struct {
	// Threads is the worker-thread hint for scans, sorts and aggregates.
	// Zero leaves the backend default in place.
	Threads int
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidIdent rejects table names that cannot be embedded in generated SQL
// verbatim. Schema-qualified names ("fed_data.epa_facilities") are allowed.
func ValidIdent(name string) error {
	if !identRe.MatchString(name) {
		return eris.Errorf("store: invalid identifier %q", name)
	}
	return nil
}

// RequireTables fails with the first missing relation. It is used to check
// the externally supplied schema before any engine-owned data is touched.
func RequireTables(ctx context.Context, s Store, names ...string) error {
	for _, name := range names {
		if err := ValidIdent(name); err != nil {
			return err
		}
		ok, err := s.HasTable(ctx, name)
		if err != nil {
			return eris.Wrapf(err, "store: check table %s", name)
		}
		if !ok {
			return eris.Errorf("store: required table %s does not exist", name)
		}
	}
	return nil
}
