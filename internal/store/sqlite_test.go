package store

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath, Options{Threads: 2})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func countRows(t *testing.T, q Querier, query string, args ...any) int64 {
	t.Helper()
	rows, err := q.Query(context.Background(), query, args...)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int64
	require.NoError(t, rows.Scan(&n))
	require.NoError(t, rows.Err())
	return n
}

func TestSQLite_PragmasOnEveryConnection(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	// Hold two connections at once so the pool has to open a second one.
	first, err := st.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close() //nolint:errcheck
	second, err := st.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close() //nolint:errcheck

	for i, conn := range []*sql.Conn{first, second} {
		var timeout, threads int
		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA threads").Scan(&threads))
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, 5000, timeout, "conn %d", i)
		assert.Equal(t, 2, threads, "conn %d", i)
		assert.Equal(t, "wal", mode, "conn %d", i)
	}
}

func TestSQLiteDSN(t *testing.T) {
	dsn := sqliteDSN("rcrainfo.db", Options{Threads: 4})
	assert.True(t, strings.HasPrefix(dsn, "rcrainfo.db?_pragma="))
	assert.Contains(t, dsn, url.QueryEscape("threads(4)"))
	assert.Contains(t, dsn, url.QueryEscape("busy_timeout(5000)"))

	dsn = sqliteDSN("file:rcrainfo.db?mode=rwc", Options{})
	assert.True(t, strings.HasPrefix(dsn, "file:rcrainfo.db?mode=rwc&_pragma="))
	assert.NotContains(t, dsn, "threads")
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))

	ok, err := st.HasTable(context.Background(), "account_matched_facilities")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.HasTable(context.Background(), "account_matched_registry")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLite_HasTable_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	ok, err := st.HasTable(context.Background(), "hd_handler")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_HasTable_View(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	for _, stmt := range SQLite.ReplaceView("v_accounts", "SELECT account_id FROM account_matched_facilities") {
		_, err := st.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	ok, err := st.HasTable(ctx, "v_accounts")
	require.NoError(t, err)
	assert.True(t, ok)

	// Replacing an existing view must not fail.
	for _, stmt := range SQLite.ReplaceView("v_accounts", "SELECT account_name FROM account_matched_facilities") {
		_, err := st.Exec(ctx, stmt)
		require.NoError(t, err)
	}
}

func TestSQLite_RegexpMatches(t *testing.T) {
	st := newTestSQLiteStore(t)

	assert.Equal(t, int64(1), countRows(t, st, `SELECT regexp_matches('ACME CORP LLC', ?)`, `\bACME CORP\b`))
	assert.Equal(t, int64(0), countRows(t, st, `SELECT regexp_matches('ACMECORP', ?)`, `\bACME\b`))
	assert.Equal(t, int64(0), countRows(t, st, `SELECT COALESCE(regexp_matches(NULL, ?), 0)`, `\bACME\b`))
}

func TestSQLite_UnicodeUpper(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rows, err := st.Query(ctx, `SELECT unicode_upper(?), UPPER(?), COALESCE(unicode_upper(NULL), 'null')`, "Nestlé Waters", "Nestlé Waters")
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var folded, ascii, null string
	require.NoError(t, rows.Scan(&folded, &ascii, &null))
	assert.Equal(t, "NESTLÉ WATERS", folded)
	assert.Equal(t, "NESTLé WATERS", ascii)
	assert.Equal(t, "null", null)

	assert.Equal(t, int64(1), countRows(t, st, `SELECT regexp_matches(unicode_upper(?), ?)`, "Nestlé Waters", `\bNESTLÉ WATERS\b`))
}

func TestSQLite_RegexpMatches_BadPattern(t *testing.T) {
	st := newTestSQLiteStore(t)
	rows, err := st.Query(context.Background(), `SELECT regexp_matches('ACME', ?)`, `(unclosed`)
	if err == nil {
		// The step error may surface on iteration instead.
		for rows.Next() {
		}
		err = rows.Err()
		rows.Close()
	}
	assert.Error(t, err)
}

func TestSQLite_InTx_Commit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.InTx(ctx, func(tx Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO account_matched_facilities (account_id) VALUES (?)`, "A1")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows(t, st, `SELECT COUNT(*) FROM account_matched_facilities`))
}

func TestSQLite_InTx_RollbackOnError(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.Exec(ctx, `INSERT INTO account_matched_facilities (account_id) VALUES (?)`, "A1")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = st.InTx(ctx, func(tx Tx) error {
		n, err := tx.Exec(ctx, `DELETE FROM account_matched_facilities WHERE account_id = ?`, "A1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// The delete was rolled back with the failed transaction.
	assert.Equal(t, int64(1), countRows(t, st, `SELECT COUNT(*) FROM account_matched_facilities`))
}

func TestSQLite_Savepoint_PartialRollback(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.InTx(ctx, func(tx Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO account_matched_facilities (account_id) VALUES (?)`, "A1"); err != nil {
			return err
		}
		spErr := tx.Savepoint(ctx, func(q Querier) error {
			if _, err := q.Exec(ctx, `INSERT INTO account_matched_facilities (account_id) VALUES (?)`, "A2"); err != nil {
				return err
			}
			return errors.New("account failed")
		})
		assert.Error(t, spErr)
		return tx.Savepoint(ctx, func(q Querier) error {
			_, err := q.Exec(ctx, `INSERT INTO account_matched_facilities (account_id) VALUES (?)`, "A3")
			return err
		})
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countRows(t, st, `SELECT COUNT(*) FROM account_matched_facilities WHERE account_id = ?`, "A1"))
	assert.Equal(t, int64(0), countRows(t, st, `SELECT COUNT(*) FROM account_matched_facilities WHERE account_id = ?`, "A2"))
	assert.Equal(t, int64(1), countRows(t, st, `SELECT COUNT(*) FROM account_matched_facilities WHERE account_id = ?`, "A3"))
}

func TestRequireTables(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, RequireTables(ctx, st, "account_matched_facilities"))

	err := RequireTables(ctx, st, "account_matched_facilities", "hd_handler")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hd_handler")

	err = RequireTables(ctx, st, "bad name; DROP TABLE x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid identifier")
}
