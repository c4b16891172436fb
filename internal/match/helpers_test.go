package match

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/store"
)

const handlerDDL = `CREATE TABLE hd_handler (
	handler_id TEXT, activity_location TEXT, source_type TEXT, seq_number TEXT,
	receive_date TEXT, handler_name TEXT,
	location_street_no TEXT, location_street1 TEXT, location_street2 TEXT,
	location_city TEXT, location_state TEXT, location_zip TEXT, location_country TEXT, county_code TEXT,
	contact_first_name TEXT, contact_middle_initial TEXT, contact_last_name TEXT,
	contact_phone TEXT, contact_phone_ext TEXT, contact_fax TEXT,
	contact_email_address TEXT, contact_title TEXT,
	fed_waste_generator TEXT, state_waste_generator TEXT, short_term_generator TEXT,
	current_record TEXT
)`

const ownerOperatorDDL = `CREATE TABLE hd_owner_operator (
	handler_id TEXT, activity_location TEXT, source_type TEXT, seq_number TEXT,
	owner_operator_indicator TEXT, owner_operator_name TEXT, email TEXT
)`

const registryDDL = `CREATE TABLE epa_facilities (
	registry_id TEXT, fac_name TEXT, fac_city TEXT, fac_state TEXT, fac_zip TEXT
)`

type handler struct {
	id, name, email, current string
}

type ownerOperator struct {
	handlerID, indicator, name, email string
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "match.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	ctx := context.Background()
	for _, ddl := range []string{handlerDDL, ownerOperatorDDL, registryDDL} {
		_, err := st.Exec(ctx, ddl)
		require.NoError(t, err)
	}
	return st
}

func seedHandlers(t *testing.T, st store.Store, hs ...handler) {
	t.Helper()
	for _, h := range hs {
		current := h.current
		if current == "" {
			current = "Y"
		}
		var email any
		if h.email != "" {
			email = h.email
		}
		_, err := st.Exec(context.Background(),
			`INSERT INTO hd_handler (handler_id, activity_location, source_type, seq_number, handler_name, location_state, contact_email_address, current_record)
			 VALUES (?, 'TX', 'N', '1', ?, 'TX', ?, ?)`,
			h.id, h.name, email, current)
		require.NoError(t, err)
	}
}

func seedOwnerOperators(t *testing.T, st store.Store, oos ...ownerOperator) {
	t.Helper()
	for _, o := range oos {
		_, err := st.Exec(context.Background(),
			`INSERT INTO hd_owner_operator (handler_id, activity_location, source_type, seq_number, owner_operator_indicator, owner_operator_name, email)
			 VALUES (?, 'TX', 'N', '1', ?, ?, ?)`,
			o.handlerID, o.indicator, o.name, o.email)
		require.NoError(t, err)
	}
}

func term(id, name, names, emails string) model.SearchTerm {
	return model.SearchTerm{
		AccountRef: model.AccountRef{AccountID: id, AccountName: name},
		NameTerms:  names,
		EmailTerms: emails,
	}
}

type matchedRow struct {
	accountID, handlerID                    string
	handlerName, ownerName, operatorName    bool
	contactEmail, ownerEmail, operatorEmail bool
}

func matchedRows(t *testing.T, st store.Store, accountID string) []matchedRow {
	t.Helper()
	rows, err := st.Query(context.Background(),
		`SELECT account_id, handler_id, handler_name_match, owner_name_match, operator_name_match,
		        contact_email_match, owner_email_match, operator_email_match
		 FROM account_matched_facilities WHERE account_id = ? ORDER BY handler_id`, accountID)
	require.NoError(t, err)
	defer rows.Close()

	var out []matchedRow
	for rows.Next() {
		var r matchedRow
		require.NoError(t, rows.Scan(&r.accountID, &r.handlerID, &r.handlerName, &r.ownerName, &r.operatorName,
			&r.contactEmail, &r.ownerEmail, &r.operatorEmail))
		out = append(out, r)
	}
	require.NoError(t, rows.Err())
	return out
}

func countTable(t *testing.T, st store.Store, table string) int64 {
	t.Helper()
	rows, err := st.Query(context.Background(), "SELECT COUNT(*) FROM "+table)
	require.NoError(t, err)
	defer rows.Close()
	require.True(t, rows.Next())
	var n int64
	require.NoError(t, rows.Scan(&n))
	return n
}

// brokenStrategy returns an unexecutable insert for one account.
type brokenStrategy struct {
	Strategy
	failID   string
	buildErr error
}

func (b brokenStrategy) BuildInsert(d store.Dialect, t model.SearchTerm) (*Statement, error) {
	if t.AccountID == b.failID {
		if b.buildErr != nil {
			return nil, b.buildErr
		}
		return &Statement{SQL: "INSERT INTO no_such_table (x) VALUES (1)"}, nil
	}
	return b.Strategy.BuildInsert(d, t)
}
