package window

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-cli/internal/store"
)

var june2025 = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	w, err := New(june2025, 5)
	require.NoError(t, err)
	assert.Equal(t, Window{CurrentYear: 2025, YearMin: 2020, YearMax: 2024, RecentStart: 2024}, w)
	assert.Equal(t, "20200101", w.Begin())
	assert.Equal(t, "20241231", w.End())
	assert.Equal(t, "2020-01-01..2024-12-31", w.String())

	assert.True(t, w.Contains(20200101))
	assert.True(t, w.Contains(20241231))
	assert.False(t, w.Contains(20191231))
	assert.False(t, w.Contains(20250101))
}

func TestNew_InvalidLookback(t *testing.T) {
	_, err := New(june2025, 0)
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate(" 20210315 ")
	require.True(t, ok)
	assert.Equal(t, 20210315, DateInt(d))

	for _, bad := range []string{"", "2021-03-15", "20211345", "2022XX01", "202103150"} {
		_, ok := ParseDate(bad)
		assert.False(t, ok, bad)
	}
}

func TestDaysBetween(t *testing.T) {
	a, _ := ParseDate("20220101")
	b, _ := ParseDate("20220131")
	assert.Equal(t, 30, DaysBetween(a, b))
	assert.Equal(t, 0, DaysBetween(a, a))
}

func TestEvaluationsSQL_Postgres(t *testing.T) {
	w, _ := New(june2025, 5)
	q := EvaluationsSQL(store.Postgres, Tables{}, w)
	assert.Contains(t, q.SQL, "FROM ce_reporting r")
	assert.Contains(t, q.SQL, "JOIN account_matched_facilities af ON af.handler_id = r.handler_id")
	assert.Contains(t, q.SQL, "r.eval_start_date BETWEEN $1 AND $2")
	assert.Equal(t, []any{"20200101", "20241231"}, q.Args)
}

func TestFacilitiesSQL_Unbounded(t *testing.T) {
	q := FacilitiesSQL(Tables{Evaluations: "fed.ce_reporting"})
	assert.Contains(t, q.SQL, "SELECT DISTINCT")
	assert.Contains(t, q.SQL, "FROM fed.ce_reporting r")
	assert.NotContains(t, q.SQL, "BETWEEN")
	assert.Empty(t, q.Args)
}

const ceReportingDDL = `CREATE TABLE ce_reporting (
	handler_id TEXT,
	eval_activity_location TEXT, eval_identifier TEXT, eval_start_date TEXT, eval_agency TEXT,
	eval_type_desc TEXT, found_violation TEXT,
	viol_activity_location TEXT, viol_seq TEXT, viol_determined_by_agency TEXT, determined_date TEXT,
	viol_short_desc TEXT, actual_rtc_date TEXT,
	enf_activity_location TEXT, enf_identifier TEXT, enf_action_date TEXT, enf_agency TEXT,
	enf_type_desc TEXT, final_amount TEXT
)`

func newWindowStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "window.db"), store.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	_, err = st.Exec(ctx, ceReportingDDL)
	require.NoError(t, err)
	return st
}

func exec(t *testing.T, st store.Store, sql string, args ...any) {
	t.Helper()
	_, err := st.Exec(context.Background(), sql, args...)
	require.NoError(t, err)
}

func seedWindow(t *testing.T, st store.Store) {
	t.Helper()
	matched := `INSERT INTO account_matched_facilities (account_id, account_name, tier, handler_id, contact_email_address)
		VALUES (?, ?, ?, ?, ?)`
	exec(t, st, matched, "A1", "Acme Corp", "Gold", "H1", "jane@acme.com")
	// second snapshot row of the same facility
	exec(t, st, matched, "A1", "Acme Corp", "Gold", "H1", "jane@acme.com")
	exec(t, st, matched, "A1", "Acme Corp", "Gold", "H2", nil)
	exec(t, st, matched, "B2", "Beta Waste", "Silver", "H3", "bob@beta.com")

	eval := `INSERT INTO ce_reporting (handler_id, eval_activity_location, eval_identifier, eval_start_date, eval_agency, eval_type_desc, found_violation)
		VALUES (?, 'TX', ?, ?, 'S', ?, ?)`
	exec(t, st, eval, "H1", "E1", "20210510", "CEI", "Y")
	exec(t, st, eval, "H1", "E2", "20190101", "CEI", "N")
	exec(t, st, eval, "H1", "E3", "2022XX01", "CEI", "N")
	exec(t, st, eval, "H2", "E4", "20240301", "FCI", "N")

	viol := `INSERT INTO ce_reporting (handler_id, viol_activity_location, viol_seq, viol_determined_by_agency, determined_date, viol_short_desc, actual_rtc_date)
		VALUES (?, 'TX', ?, 'S', ?, ?, ?)`
	exec(t, st, viol, "H1", "1", "20220101", "Generator-General", "20220131")
	exec(t, st, viol, "H1", "2", "20230601", "Manifest", nil)

	enf := `INSERT INTO ce_reporting (handler_id, enf_activity_location, enf_identifier, enf_action_date, enf_agency, enf_type_desc, final_amount)
		VALUES (?, 'TX', ?, ?, 'E', ?, ?)`
	exec(t, st, enf, "H3", "F1", "20230915", "Initial Order", "1,500.50")
	exec(t, st, enf, "H3", "F2", "20240101", "Written Informal", "")
}

func TestBuilder_Build(t *testing.T) {
	st := newWindowStore(t)
	seedWindow(t, st)

	w, err := New(june2025, 5)
	require.NoError(t, err)
	views, err := NewBuilder(st, Tables{}, w, 4).Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, w, views.Window)

	// E2 is before the window and E3 has no valid date; E1 appears once
	// despite two snapshot rows for H1.
	require.Len(t, views.Evaluations, 2)
	byPK := map[string]Evaluation{}
	for _, e := range views.Evaluations {
		byPK[e.PK] = e
	}
	e1 := byPK["H1|TX|E1|20210510|S"]
	assert.Equal(t, 20210510, e1.Date)
	assert.Equal(t, 2021, e1.Year)
	assert.Equal(t, "CEI", e1.Type)
	assert.True(t, e1.FoundViolation)
	assert.Equal(t, "A1", e1.AccountID)
	assert.Equal(t, "Gold", e1.Tier)
	assert.Equal(t, "jane@acme.com", e1.ContactEmail)

	e4 := byPK["H2|TX|E4|20240301|S"]
	assert.False(t, e4.FoundViolation)
	assert.Equal(t, NoEmail, e4.ContactEmail)

	require.Len(t, views.Violations, 2)
	for _, v := range views.Violations {
		switch v.Type {
		case "Generator-General":
			require.NotNil(t, v.DaysToResolve)
			assert.Equal(t, 30, *v.DaysToResolve)
			assert.Equal(t, "H1|TX|1|S", v.PK)
		case "Manifest":
			assert.Nil(t, v.DaysToResolve)
			assert.Equal(t, 2023, v.Year)
		default:
			t.Fatalf("unexpected violation %q", v.Type)
		}
	}

	require.Len(t, views.Enforcements, 2)
	for _, e := range views.Enforcements {
		assert.Equal(t, "B2", e.AccountID)
		switch e.Type {
		case "Initial Order":
			require.NotNil(t, e.Penalty)
			assert.InDelta(t, 1500.50, *e.Penalty, 1e-9)
		case "Written Informal":
			assert.Nil(t, e.Penalty)
		}
	}

	assert.ElementsMatch(t, []string{"H1/A1/jane@acme.com", "H2/A1/" + NoEmail, "H3/B2/bob@beta.com"}, facilityKeys(views.Facilities))
}

func facilityKeys(fs []FacilityLink) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.HandlerID + "/" + f.AccountID + "/" + f.ContactEmail
	}
	return out
}

func TestBuilder_MissingEventTable(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "empty.db"), store.Options{})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	w, _ := New(june2025, 5)
	_, err = NewBuilder(st, Tables{}, w, 1).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ce_reporting")
}

func TestParseAmount(t *testing.T) {
	assert.Nil(t, parseAmount(""))
	assert.Nil(t, parseAmount("  "))
	assert.Nil(t, parseAmount("n/a"))
	assert.Nil(t, parseAmount("NaN"))
	assert.Nil(t, parseAmount("inf"))
	assert.Nil(t, parseAmount("-Infinity"))
	assert.Nil(t, parseAmount("1e400"))
	require.NotNil(t, parseAmount("2500"))
	assert.Equal(t, 2500.0, *parseAmount("2500"))
	assert.Equal(t, 12000.25, *parseAmount("12,000.25"))
}
