// Package match links facility records to accounts and persists the matches
// per account, replacing only the accounts of the current batch.
package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/store"
)

// Statement is a generated SQL statement and its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Strategy is a matching backend. It owns the predicate; the Engine owns
// the delete-scope/insert/summarize life cycle.
type Strategy interface {
	// Name identifies the strategy in logs, metrics and summaries.
	Name() string

	// Table is the relation that receives this strategy's matches.
	Table() string

	// Prepare checks the source schema and creates the relations the
	// strategy reads from and writes to. It runs before any delete.
	Prepare(ctx context.Context, s store.Store) error

	// BuildInsert returns the statement inserting every match for term, or
	// nil when term has nothing to match on.
	BuildInsert(d store.Dialect, term model.SearchTerm) (*Statement, error)
}

// deleteChunk bounds the number of ids bound in one DELETE.
const deleteChunk = 500

// deleteAccounts removes every row of table owned by ids.
func deleteAccounts(ctx context.Context, q store.Querier, d store.Dialect, table string, ids []string) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += deleteChunk {
		end := min(start+deleteChunk, len(ids))
		args := store.NewArgs(d)
		sql := fmt.Sprintf("DELETE FROM %s WHERE account_id IN (%s)", table, args.List(ids[start:end]))
		n, err := q.Exec(ctx, sql, args.Values()...)
		if err != nil {
			return total, eris.Wrapf(err, "match: delete prior matches from %s", table)
		}
		total += n
	}
	return total, nil
}

// countSQL renders the per-account count query: total rows then one sum per
// flag, in model.Flags order.
func countSQL(d store.Dialect, table string) string {
	cols := make([]string, 0, len(model.Flags)+1)
	cols = append(cols, "COUNT(*)")
	for _, f := range model.Flags {
		cols = append(cols, fmt.Sprintf("COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0)", f))
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE account_id = %s", strings.Join(cols, ", "), table, d.Placeholder(1))
}

// countMatches reads back the stored match counts of one account.
func countMatches(ctx context.Context, q store.Querier, d store.Dialect, table, accountID string) (model.FlagCounts, error) {
	var c model.FlagCounts
	rows, err := q.Query(ctx, countSQL(d, table), accountID)
	if err != nil {
		return c, eris.Wrap(err, "match: count matches")
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&c.Total, &c.HandlerName, &c.OwnerName, &c.OperatorName,
			&c.ContactEmail, &c.OwnerEmail, &c.OperatorEmail); err != nil {
			return c, eris.Wrap(err, "match: scan counts")
		}
	}
	return c, eris.Wrap(rows.Err(), "match: count matches")
}

// accountSelect renders the account attribute columns as bound values.
func accountSelect(args *store.Args, ref model.AccountRef) []string {
	attrs := ref.Attributes()
	out := make([]string, len(attrs))
	for i, col := range model.AccountColumns {
		out[i] = fmt.Sprintf("CAST(%s AS TEXT) AS %s", args.Add(attrs[i]), col)
	}
	return out
}

func flagNames() []string {
	out := make([]string, len(model.Flags))
	for i, f := range model.Flags {
		out[i] = string(f)
	}
	return out
}
