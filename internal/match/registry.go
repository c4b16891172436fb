package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/store"
)

// RegistryMatchTable receives registry strategy matches.
const RegistryMatchTable = "account_matched_registry"

// DefaultRegistryTable is the EPA facility registry relation.
const DefaultRegistryTable = "epa_facilities"

// RegistryStrategy is the lower-fidelity backend: a case-insensitive
// substring match of the account name against the registry facility name.
// Every match sets handler_name_match only.
type RegistryStrategy struct {
	table string
}

// NewRegistryStrategy creates a RegistryStrategy reading table.
func NewRegistryStrategy(table string) *RegistryStrategy {
	if table == "" {
		table = DefaultRegistryTable
	}
	return &RegistryStrategy{table: table}
}

// Name implements Strategy.
func (s *RegistryStrategy) Name() string { return "registry" }

// Table implements Strategy.
func (s *RegistryStrategy) Table() string { return RegistryMatchTable }

// Prepare implements Strategy.
func (s *RegistryStrategy) Prepare(ctx context.Context, st store.Store) error {
	if err := store.RequireTables(ctx, st, s.table); err != nil {
		return err
	}
	return eris.Wrap(st.Migrate(ctx), "match: migrate")
}

var registryColumns = []string{"registry_id", "facility_name", "facility_city", "facility_state", "facility_zip"}

// BuildInsert implements Strategy.
func (s *RegistryStrategy) BuildInsert(d store.Dialect, term model.SearchTerm) (*Statement, error) {
	if strings.TrimSpace(term.AccountName) == "" {
		return nil, nil
	}

	args := store.NewArgs(d)
	sel := accountSelect(args, term.AccountRef)
	sel = append(sel,
		"CAST(f.registry_id AS TEXT)",
		"f.fac_name",
		"f.fac_city",
		"f.fac_state",
		"CAST(f.fac_zip AS TEXT)",
		"TRUE", "FALSE", "FALSE", "FALSE", "FALSE", "FALSE",
	)
	like := args.Add(ContainsPattern(term.AccountName))

	cols := make([]string, 0, len(model.AccountColumns)+len(registryColumns)+len(model.Flags))
	cols = append(cols, model.AccountColumns...)
	cols = append(cols, registryColumns...)
	cols = append(cols, flagNames()...)

	sql := fmt.Sprintf(`INSERT INTO %s (%s)
SELECT %s
FROM %s f
WHERE %s LIKE %s ESCAPE '\'`,
		RegistryMatchTable,
		strings.Join(cols, ", "),
		strings.Join(sel, ", "),
		s.table,
		d.Upper("f.fac_name"),
		like,
	)
	return &Statement{SQL: sql, Args: args.Values()}, nil
}
