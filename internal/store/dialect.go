package store

import (
	"fmt"
	"strings"
)

// Dialect renders the few SQL fragments that differ between backends.
type Dialect interface {
	Name() string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string

	// Upper renders the Unicode upper-case form of a text expression.
	Upper(expr string) string

	// RegexpMatch renders a boolean expression that is true when expr
	// matches the regular expression bound at placeholder.
	RegexpMatch(expr, placeholder string) string

	// WordBoundary is the regex escape for a word boundary.
	WordBoundary() string

	// StringAgg concatenates non-null values of expr separated by sep.
	StringAgg(expr, sep string) string

	// EmailDomain extracts the part after '@' of an e-mail column, or NULL.
	EmailDomain(expr string) string

	// ReplaceView returns the statements that (re)define a view.
	ReplaceView(name, query string) []string
}

// SQLite is the dialect of the modernc.org/sqlite backend. Regex matching
// and upper-casing go through the regexp_matches and unicode_upper scalar
// functions registered by NewSQLite; SQLite's UPPER only folds ASCII.
var SQLite Dialect = sqliteDialect{}

// Postgres is the dialect of the pgx backend.
var Postgres Dialect = postgresDialect{}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) Upper(expr string) string {
	return fmt.Sprintf("unicode_upper(%s)", expr)
}

func (sqliteDialect) RegexpMatch(expr, placeholder string) string {
	return fmt.Sprintf("regexp_matches(%s, %s)", expr, placeholder)
}

func (sqliteDialect) WordBoundary() string { return `\b` }

func (sqliteDialect) StringAgg(expr, sep string) string {
	return fmt.Sprintf("GROUP_CONCAT(%s, %s)", expr, sep)
}

func (sqliteDialect) EmailDomain(expr string) string {
	return fmt.Sprintf("CASE WHEN INSTR(%[1]s, '@') > 0 THEN SUBSTR(%[1]s, INSTR(%[1]s, '@') + 1) END", expr)
}

func (sqliteDialect) ReplaceView(name, query string) []string {
	return []string{
		"DROP VIEW IF EXISTS " + name,
		"CREATE VIEW " + name + " AS " + query,
	}
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (postgresDialect) Upper(expr string) string {
	return fmt.Sprintf("UPPER(%s)", expr)
}

func (postgresDialect) RegexpMatch(expr, placeholder string) string {
	return fmt.Sprintf("(%s ~ %s)", expr, placeholder)
}

// Postgres ARE uses \y for a word boundary; \b is backspace there.
func (postgresDialect) WordBoundary() string { return `\y` }

func (postgresDialect) StringAgg(expr, sep string) string {
	return fmt.Sprintf("STRING_AGG(%s, %s)", expr, sep)
}

func (postgresDialect) EmailDomain(expr string) string {
	return fmt.Sprintf("SUBSTRING(%s FROM '@(.+)$')", expr)
}

func (postgresDialect) ReplaceView(name, query string) []string {
	return []string{"CREATE OR REPLACE VIEW " + name + " AS " + query}
}

// Args accumulates bind arguments while a statement is being built and
// hands out the matching placeholders.
type Args struct {
	d      Dialect
	values []any
}

// NewArgs creates an empty argument list for d.
func NewArgs(d Dialect) *Args {
	return &Args{d: d}
}

// Add binds v and returns its placeholder.
func (a *Args) Add(v any) string {
	a.values = append(a.values, v)
	return a.d.Placeholder(len(a.values))
}

// List binds every value and returns the comma-separated placeholders,
// suitable for an IN (...) clause.
func (a *Args) List(vals []string) string {
	marks := make([]string, len(vals))
	for i, v := range vals {
		marks[i] = a.Add(v)
	}
	return strings.Join(marks, ", ")
}

// Values returns the bound arguments in placeholder order.
func (a *Args) Values() []any {
	return a.values
}
