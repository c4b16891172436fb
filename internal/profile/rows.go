// Package profile assembles the per-contact and per-account compliance
// profiles from the window views and writes them as delimited tables.
package profile

import (
	"strconv"

	"github.com/sells-group/compliance-cli/internal/model"
)

// Float is a metric value rendered in plain decimal notation.
type Float float64

// MarshalText implements encoding.TextMarshaler.
func (f Float) MarshalText() ([]byte, error) {
	return strconv.AppendFloat(nil, float64(f), 'f', -1, 64), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Float) UnmarshalText(b []byte) error {
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

func floatPtr(v float64) *Float {
	f := Float(v)
	return &f
}

func intPtr(v int) *int { return &v }

// Metrics are the computed columns shared by contact and account rows.
// Pointer fields are empty when the value is unknown.
type Metrics struct {
	Facilities         int `csv:"facilities"`
	FacilitiesInWindow int `csv:"facilities_in_window"`

	Evaluations           int    `csv:"evaluations_in_window"`
	EvalsWithViolation    int    `csv:"evals_with_viol_in_window"`
	Violations            int    `csv:"violations_in_window"`
	EnforcementActions    int    `csv:"enforcement_actions_in_window"`
	TotalPenalties        Float  `csv:"total_penalties_in_window"`
	OpenViolations        int    `csv:"open_violations"`
	LastEvalDate          *int   `csv:"last_eval_date"`
	LastViolationDate     *int   `csv:"last_violation_date"`
	LastPenaltyDate       *int   `csv:"last_penalty_date"`
	EvalHitRate           Float  `csv:"eval_hit_rate_%"`
	EvalTypeMaxHit        string `csv:"eval_type_max_hit"`
	EvalTypeMaxHitRate    *Float `csv:"eval_type_max_hit_rate_%"`
	EvalTrendSlope        *Float `csv:"eval_trend_slope_%"`
	EvalSpikeYear         *int   `csv:"eval_spike_year"`
	EvalSpikeType         string `csv:"eval_spike_type"`
	EvalTypeToWatch       string `csv:"eval_type_to_watch"`
	ViolTrendSlope        *Float `csv:"viol_trend_slope_%"`
	SpikeYear             *int   `csv:"spike_year"`
	SpikeViolationType    string `csv:"spike_violation_type"`
	TypeToWatch           string `csv:"type_to_watch"`
	EnfTypeLargestPenalty string `csv:"enf_type_largest_penalty"`
	LargestPenalty        Float  `csv:"largest_penalty_amt"`
	AvgDaysToResolve      *int   `csv:"avg_days_to_resolve"`
}

// ContactRow is the profile of one (contact e-mail, account) pair.
type ContactRow struct {
	ContactEmail string `csv:"contact_email"`
	model.AccountRef
	Metrics
}

// AccountRow is the profile of one account across all its contacts.
type AccountRow struct {
	model.AccountRef
	Metrics
}
