package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	sqlite "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var registerFuncs sync.Once

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
// Pragmas travel in the DSN so every pooled connection gets them.
func NewSQLite(dsn string, opts Options) (*SQLiteStore, error) {
	registerFuncs.Do(func() {
		sqlite.MustRegisterDeterministicScalarFunction("regexp_matches", 2, regexpMatches)
		sqlite.MustRegisterDeterministicScalarFunction("unicode_upper", 1, unicodeUpper)
	})

	db, err := sql.Open("sqlite", sqliteDSN(dsn, opts))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	if err := db.Ping(); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "sqlite: connect")
	}
	return &SQLiteStore{db: db}, nil
}

// sqliteDSN appends the connection pragmas to dsn as _pragma parameters.
func sqliteDSN(dsn string, opts Options) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	if opts.Threads > 0 {
		q.Add("_pragma", fmt.Sprintf("threads(%d)", opts.Threads))
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + q.Encode()
}

// patternCache holds compiled patterns keyed by source text. A batch reuses
// one pattern for every facility row, so compiling per call is wasteful.
var patternCache sync.Map

// regexpMatches backs regexp_matches(text, pattern). NULL in, NULL out.
func regexpMatches(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, ok := textArg(args[0])
	if !ok {
		return nil, nil
	}
	pattern, ok := textArg(args[1])
	if !ok {
		return nil, nil
	}

	var re *regexp.Regexp
	if cached, hit := patternCache.Load(pattern); hit {
		re = cached.(*regexp.Regexp)
	} else {
		compiled, err := regexp.Compile(pattern)
		if err != nil {
			return nil, eris.Wrapf(err, "regexp_matches: compile %q", pattern)
		}
		patternCache.Store(pattern, compiled)
		re = compiled
	}

	if re.MatchString(text) {
		return int64(1), nil
	}
	return int64(0), nil
}

// unicodeUpper backs unicode_upper(text). NULL in, NULL out.
func unicodeUpper(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	text, ok := textArg(args[0])
	if !ok {
		return nil, nil
	}
	return strings.ToUpper(text), nil
}

func textArg(v driver.Value) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return fmt.Sprint(t), true
	}
}

// Dialect implements Store.
func (s *SQLiteStore) Dialect() Dialect { return SQLite }

// Migrate implements Store.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, matchedRelationsDDL)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Exec implements Querier.
func (s *SQLiteStore) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execSQL(ctx, s.db, query, args...)
}

// Query implements Querier.
func (s *SQLiteStore) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return querySQL(ctx, s.db, query, args...)
}

// HasTable implements Store.
func (s *SQLiteStore) HasTable(ctx context.Context, name string) (bool, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`,
		name,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: lookup table %s", name)
	}
	return n > 0, nil
}

// InTx implements Store.
func (s *SQLiteStore) InTx(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	if err := fn(&sqliteTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			zap.L().Warn("sqlite: rollback failed", zap.Error(rbErr))
		}
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

type sqliteTx struct {
	tx  *sql.Tx
	seq atomic.Int64
}

func (t *sqliteTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return execSQL(ctx, t.tx, query, args...)
}

func (t *sqliteTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return querySQL(ctx, t.tx, query, args...)
}

func (t *sqliteTx) Savepoint(ctx context.Context, fn func(Querier) error) error {
	name := fmt.Sprintf("sp_%d", t.seq.Add(1))
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return eris.Wrapf(err, "sqlite: savepoint %s", name)
	}
	if err := fn(t); err != nil {
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			zap.L().Warn("sqlite: rollback to savepoint failed", zap.String("savepoint", name), zap.Error(rbErr))
		}
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); relErr != nil {
			zap.L().Warn("sqlite: release savepoint failed", zap.String("savepoint", name), zap.Error(relErr))
		}
		return err
	}
	_, err := t.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name)
	return eris.Wrapf(err, "sqlite: release savepoint %s", name)
}

// sqlExecer is satisfied by *sql.DB and *sql.Tx.
type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func execSQL(ctx context.Context, e sqlExecer, query string, args ...any) (int64, error) {
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

func querySQL(ctx context.Context, e sqlExecer, query string, args ...any) (Rows, error) {
	rows, err := e.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query")
	}
	return sqlRows{rows: rows}, nil
}

type sqlRows struct {
	rows *sql.Rows
}

func (r sqlRows) Next() bool             { return r.rows.Next() }
func (r sqlRows) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRows) Err() error             { return r.rows.Err() }
func (r sqlRows) Close()                 { _ = r.rows.Close() }
