package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArgs_SQLitePlaceholders(t *testing.T) {
	a := NewArgs(SQLite)
	assert.Equal(t, "?", a.Add("A1"))
	assert.Equal(t, "?, ?", a.List([]string{"acme.com", "acme.net"}))
	assert.Equal(t, []any{"A1", "acme.com", "acme.net"}, a.Values())
}

func TestArgs_PostgresPlaceholders(t *testing.T) {
	a := NewArgs(Postgres)
	assert.Equal(t, "$1", a.Add("A1"))
	assert.Equal(t, "$2, $3", a.List([]string{"acme.com", "acme.net"}))
	assert.Equal(t, "$4", a.Add("x"))
	assert.Len(t, a.Values(), 4)
}

func TestDialect_RegexpMatch(t *testing.T) {
	assert.Equal(t, "regexp_matches(UPPER(h.handler_name), ?)", SQLite.RegexpMatch("UPPER(h.handler_name)", "?"))
	assert.Equal(t, "(UPPER(h.handler_name) ~ $3)", Postgres.RegexpMatch("UPPER(h.handler_name)", "$3"))
}

func TestDialect_Upper(t *testing.T) {
	assert.Equal(t, "unicode_upper(h.handler_name)", SQLite.Upper("h.handler_name"))
	assert.Equal(t, "UPPER(h.handler_name)", Postgres.Upper("h.handler_name"))
}

func TestDialect_WordBoundary(t *testing.T) {
	assert.Equal(t, `\b`, SQLite.WordBoundary())
	assert.Equal(t, `\y`, Postgres.WordBoundary())
}

func TestDialect_ReplaceView(t *testing.T) {
	assert.Equal(t, []string{"DROP VIEW IF EXISTS v", "CREATE VIEW v AS SELECT 1"}, SQLite.ReplaceView("v", "SELECT 1"))
	assert.Equal(t, []string{"CREATE OR REPLACE VIEW v AS SELECT 1"}, Postgres.ReplaceView("v", "SELECT 1"))
}

func TestDialect_EmailDomain(t *testing.T) {
	assert.Contains(t, SQLite.EmailDomain("email"), "INSTR(email, '@')")
	assert.Equal(t, "SUBSTRING(email FROM '@(.+)$')", Postgres.EmailDomain("email"))
}

func TestValidIdent(t *testing.T) {
	assert.NoError(t, ValidIdent("hd_handler"))
	assert.NoError(t, ValidIdent("fed_data.epa_facilities"))
	assert.Error(t, ValidIdent(""))
	assert.Error(t, ValidIdent("a.b.c"))
	assert.Error(t, ValidIdent("x; DROP TABLE y"))
	assert.Error(t, ValidIdent("1table"))
}
