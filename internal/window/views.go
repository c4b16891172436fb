package window

import (
	"fmt"
	"strings"

	"github.com/sells-group/compliance-cli/internal/match"
	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/store"
)

// NoEmail stands in for a matched facility without a contact e-mail.
const NoEmail = "(no email)"

// Tables names the relations the views read.
type Tables struct {
	Evaluations  string
	Violations   string
	Enforcements string
	Matched      string
}

// DefaultEventTable is the compliance and enforcement reporting relation.
const DefaultEventTable = "ce_reporting"

func (t Tables) withDefaults() Tables {
	if t.Evaluations == "" {
		t.Evaluations = DefaultEventTable
	}
	if t.Violations == "" {
		t.Violations = DefaultEventTable
	}
	if t.Enforcements == "" {
		t.Enforcements = DefaultEventTable
	}
	if t.Matched == "" {
		t.Matched = match.FacilityMatchTable
	}
	return t
}

// Link ties an event to the account, and the facility contact, it was
// matched to.
type Link struct {
	model.AccountRef
	ContactEmail string
}

// Evaluation is one compliance evaluation inside the window.
type Evaluation struct {
	PK             string
	HandlerID      string
	Date           int
	Year           int
	Type           string
	FoundViolation bool
	Link
}

// Violation is one violation determined inside the window. DaysToResolve
// is nil when either the determination or return-to-compliance date is
// unknown.
type Violation struct {
	PK            string
	HandlerID     string
	Date          int
	Year          int
	Type          string
	DaysToResolve *int
	Link
}

// Enforcement is one enforcement action inside the window. Penalty is nil
// when no amount was recorded.
type Enforcement struct {
	PK        string
	HandlerID string
	Date      int
	Year      int
	Type      string
	Penalty   *float64
	Link
}

// FacilityLink is one distinct facility and account/contact pair across
// all time.
type FacilityLink struct {
	HandlerID string
	Link
}

// Views holds the four tidy tables of one window.
type Views struct {
	Window       Window
	Evaluations  []Evaluation
	Violations   []Violation
	Enforcements []Enforcement
	Facilities   []FacilityLink
}

// Query is a rendered view query and its bound arguments.
type Query struct {
	SQL  string
	Args []any
}

// linkColumns are selected after every view's own columns, in Link order.
var linkColumns = []string{
	"COALESCE(CAST(af.account_id AS TEXT), '')",
	"COALESCE(af.account_name, '')",
	"COALESCE(af.tier, '')",
	"COALESCE(af.parent_account_id, '')",
	"COALESCE(af.parent_account, '')",
	"COALESCE(af.account_owner, '')",
	"COALESCE(af.bda_owner, '')",
	"COALESCE(af.cs_owner, '')",
	"COALESCE(NULLIF(TRIM(af.contact_email_address), ''), '" + NoEmail + "')",
}

func text(col string) string {
	return fmt.Sprintf("COALESCE(CAST(r.%s AS TEXT), '')", col)
}

// windowed renders a view over events whose dateCol lies in the window.
// Text dates compare correctly in YYYYMMDD form; rows are parsed again
// strictly after the scan.
func windowed(d store.Dialect, events, matched string, cols []string, dateCol string, w Window) Query {
	args := store.NewArgs(d)
	sel := make([]string, 0, len(cols)+len(linkColumns))
	for _, c := range cols {
		sel = append(sel, text(c))
	}
	sel = append(sel, linkColumns...)

	sql := fmt.Sprintf(`SELECT %s
FROM %s r
JOIN %s af ON af.handler_id = r.handler_id
WHERE af.account_id IS NOT NULL
  AND r.%s BETWEEN %s AND %s
ORDER BY af.account_id, af.contact_email_address, r.handler_id, r.%s`,
		strings.Join(sel, ",\n\t"),
		events, matched,
		dateCol, args.Add(w.Begin()), args.Add(w.End()),
		dateCol,
	)
	return Query{SQL: sql, Args: args.Values()}
}

var evaluationColumns = []string{
	"handler_id", "eval_activity_location", "eval_identifier", "eval_start_date", "eval_agency",
	"eval_type_desc", "found_violation",
}

// EvaluationsSQL renders the evaluations-in-window view.
func EvaluationsSQL(d store.Dialect, t Tables, w Window) Query {
	t = t.withDefaults()
	return windowed(d, t.Evaluations, t.Matched, evaluationColumns, "eval_start_date", w)
}

var violationColumns = []string{
	"handler_id", "viol_activity_location", "viol_seq", "viol_determined_by_agency", "determined_date",
	"viol_short_desc", "actual_rtc_date",
}

// ViolationsSQL renders the violations-in-window view.
func ViolationsSQL(d store.Dialect, t Tables, w Window) Query {
	t = t.withDefaults()
	return windowed(d, t.Violations, t.Matched, violationColumns, "determined_date", w)
}

var enforcementColumns = []string{
	"handler_id", "enf_activity_location", "enf_identifier", "enf_action_date", "enf_agency",
	"enf_type_desc", "final_amount",
}

// EnforcementsSQL renders the enforcement-actions-in-window view.
func EnforcementsSQL(d store.Dialect, t Tables, w Window) Query {
	t = t.withDefaults()
	return windowed(d, t.Enforcements, t.Matched, enforcementColumns, "enf_action_date", w)
}

// FacilitiesSQL renders the breadth view. It is deliberately not time
// filtered.
func FacilitiesSQL(t Tables) Query {
	t = t.withDefaults()
	sel := append([]string{text("handler_id")}, linkColumns...)
	sql := fmt.Sprintf(`SELECT DISTINCT %s
FROM %s r
JOIN %s af ON af.handler_id = r.handler_id
WHERE af.account_id IS NOT NULL`,
		strings.Join(sel, ",\n\t"),
		t.Evaluations, t.Matched,
	)
	return Query{SQL: sql}
}
