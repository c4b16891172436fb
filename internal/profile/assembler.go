package profile

import (
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/trend"
	"github.com/sells-group/compliance-cli/internal/window"
)

// key identifies a profile. An empty contact selects every contact of the
// account.
type key struct {
	contact string
	account string
}

// slice is the part of each view that belongs to one key.
type slice struct {
	evals []window.Evaluation
	viols []window.Violation
	enfs  []window.Enforcement
	facs  []window.FacilityLink
}

// Assembler computes profile rows from one set of window views.
type Assembler struct {
	views *window.Views
	win   window.Window
	log   *zap.Logger

	byContact map[key]*slice
	byAccount map[string]*slice
}

// NewAssembler indexes views by contact and by account.
func NewAssembler(views *window.Views, win window.Window) *Assembler {
	a := &Assembler{
		views:     views,
		win:       win,
		log:       zap.L().With(zap.String("component", "profile")),
		byContact: map[key]*slice{},
		byAccount: map[string]*slice{},
	}
	a.index()
	return a
}

func (a *Assembler) contactSlice(l window.Link) *slice {
	k := key{contact: l.ContactEmail, account: l.AccountID}
	s, ok := a.byContact[k]
	if !ok {
		s = &slice{}
		a.byContact[k] = s
	}
	return s
}

func (a *Assembler) accountSlice(id string) *slice {
	s, ok := a.byAccount[id]
	if !ok {
		s = &slice{}
		a.byAccount[id] = s
	}
	return s
}

// index slices every view once. Account slices keep one row per event even
// when the event reaches the account through several contacts.
func (a *Assembler) index() {
	seen := map[string]struct{}{}
	firstForAccount := func(view, pk, account string) bool {
		k := view + "\x00" + pk + "\x00" + account
		if _, ok := seen[k]; ok {
			return false
		}
		seen[k] = struct{}{}
		return true
	}

	for _, e := range a.views.Evaluations {
		c := a.contactSlice(e.Link)
		c.evals = append(c.evals, e)
		if firstForAccount("e", e.PK, e.AccountID) {
			s := a.accountSlice(e.AccountID)
			s.evals = append(s.evals, e)
		}
	}
	for _, v := range a.views.Violations {
		c := a.contactSlice(v.Link)
		c.viols = append(c.viols, v)
		if firstForAccount("v", v.PK, v.AccountID) {
			s := a.accountSlice(v.AccountID)
			s.viols = append(s.viols, v)
		}
	}
	for _, f := range a.views.Enforcements {
		c := a.contactSlice(f.Link)
		c.enfs = append(c.enfs, f)
		if firstForAccount("f", f.PK, f.AccountID) {
			s := a.accountSlice(f.AccountID)
			s.enfs = append(s.enfs, f)
		}
	}
	for _, f := range a.views.Facilities {
		c := a.contactSlice(f.Link)
		c.facs = append(c.facs, f)
		s := a.accountSlice(f.AccountID)
		s.facs = append(s.facs, f)
	}
}

// identitySource yields the link of the first row of one slice.
type identitySource func(*slice) (window.Link, bool)

func fromEvaluations(s *slice) (window.Link, bool) {
	if len(s.evals) == 0 {
		return window.Link{}, false
	}
	return s.evals[0].Link, true
}

func fromViolations(s *slice) (window.Link, bool) {
	if len(s.viols) == 0 {
		return window.Link{}, false
	}
	return s.viols[0].Link, true
}

func fromEnforcements(s *slice) (window.Link, bool) {
	if len(s.enfs) == 0 {
		return window.Link{}, false
	}
	return s.enfs[0].Link, true
}

// identityPrecedence is the order in which slices supply identity fields.
var identityPrecedence = []identitySource{fromEvaluations, fromViolations, fromEnforcements}

// firstMatch returns the identity from the first source with a row.
func firstMatch(s *slice, sources []identitySource) (window.Link, bool) {
	for _, src := range sources {
		if l, ok := src(s); ok {
			return l, true
		}
	}
	return window.Link{}, false
}

// ContactRows returns one row per distinct (contact e-mail, account) pair of
// the evaluation view, in order of first appearance.
func (a *Assembler) ContactRows() []ContactRow {
	var out []ContactRow
	seen := map[key]struct{}{}
	for _, e := range a.views.Evaluations {
		k := key{contact: e.ContactEmail, account: e.AccountID}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}

		s := a.byContact[k]
		id, ok := firstMatch(s, identityPrecedence)
		if !ok {
			continue
		}
		out = append(out, ContactRow{
			ContactEmail: id.ContactEmail,
			AccountRef:   id.AccountRef,
			Metrics:      a.compute(s),
		})
	}
	a.log.Debug("contact profiles assembled", zap.Int("rows", len(out)))
	return out
}

// AccountRows returns one row per distinct account of the evaluation view,
// in order of first appearance.
func (a *Assembler) AccountRows() []AccountRow {
	var out []AccountRow
	seen := map[string]struct{}{}
	for _, e := range a.views.Evaluations {
		if _, ok := seen[e.AccountID]; ok {
			continue
		}
		seen[e.AccountID] = struct{}{}

		s := a.byAccount[e.AccountID]
		id, ok := firstMatch(s, identityPrecedence)
		if !ok {
			continue
		}
		out = append(out, AccountRow{
			AccountRef: id.AccountRef,
			Metrics:    a.compute(s),
		})
	}
	a.log.Debug("account profiles assembled", zap.Int("rows", len(out)))
	return out
}

func (a *Assembler) compute(s *slice) Metrics {
	var m Metrics

	facs := map[string]struct{}{}
	for _, f := range s.facs {
		facs[f.HandlerID] = struct{}{}
	}
	m.Facilities = len(facs)

	inWindow := map[string]struct{}{}
	for _, e := range s.evals {
		inWindow[e.HandlerID] = struct{}{}
	}
	for _, v := range s.viols {
		inWindow[v.HandlerID] = struct{}{}
	}
	for _, f := range s.enfs {
		inWindow[f.HandlerID] = struct{}{}
	}
	m.FacilitiesInWindow = len(inWindow)

	a.evaluationMetrics(s.evals, &m)
	a.violationMetrics(s.viols, &m)
	enforcementMetrics(s.enfs, &m)
	return m
}

func (a *Assembler) evaluationMetrics(evals []window.Evaluation, m *Metrics) {
	type typeStats struct{ evals, hits int }
	byType := map[string]*typeStats{}
	years := make([]int, 0, len(evals))
	types := make([]string, 0, len(evals))
	for _, e := range evals {
		m.Evaluations++
		if e.FoundViolation {
			m.EvalsWithViolation++
		}
		if m.LastEvalDate == nil || e.Date > *m.LastEvalDate {
			m.LastEvalDate = intPtr(e.Date)
		}
		ts, ok := byType[e.Type]
		if !ok {
			ts = &typeStats{}
			byType[e.Type] = ts
		}
		ts.evals++
		if e.FoundViolation {
			ts.hits++
		}
		years = append(years, e.Year)
		types = append(types, e.Type)
	}

	if m.Evaluations == 0 {
		return
	}
	m.EvalHitRate = Float(trend.Round(100*float64(m.EvalsWithViolation)/float64(m.Evaluations), 1))

	names := make([]string, 0, len(byType))
	for t := range byType {
		names = append(names, t)
	}
	sort.Strings(names)
	bestRate := -1.0
	for _, t := range names {
		ts := byType[t]
		if rate := 100 * float64(ts.hits) / float64(ts.evals); rate > bestRate {
			m.EvalTypeMaxHit, bestRate = t, rate
		}
	}
	m.EvalTypeMaxHitRate = floatPtr(trend.Round(bestRate, 1))

	series := trend.CountByYear(years)
	m.EvalTrendSlope = floatPtr(trend.SlopePct(series))
	if y, ok := trend.SpikeYear(series); ok {
		m.EvalSpikeYear = intPtr(y)
		m.EvalSpikeType, _ = trend.Mode(typesInYear(years, types, y))
	}
	m.EvalTypeToWatch, _ = trend.EmergingCategory(trend.CountByYearCategory(years, types), a.win.RecentStart)
}

func (a *Assembler) violationMetrics(viols []window.Violation, m *Metrics) {
	years := make([]int, 0, len(viols))
	types := make([]string, 0, len(viols))
	var days, resolved int
	for _, v := range viols {
		m.Violations++
		if v.DaysToResolve == nil {
			m.OpenViolations++
		} else {
			days += *v.DaysToResolve
			resolved++
		}
		if m.LastViolationDate == nil || v.Date > *m.LastViolationDate {
			m.LastViolationDate = intPtr(v.Date)
		}
		years = append(years, v.Year)
		types = append(types, v.Type)
	}
	if resolved > 0 {
		m.AvgDaysToResolve = intPtr(days / resolved)
	}

	if m.Violations == 0 {
		return
	}
	series := trend.CountByYear(years)
	m.ViolTrendSlope = floatPtr(trend.SlopePct(series))
	if y, ok := trend.SpikeYear(series); ok {
		m.SpikeYear = intPtr(y)
		m.SpikeViolationType, _ = trend.Mode(typesInYear(years, types, y))
	}
	m.TypeToWatch, _ = trend.EmergingCategory(trend.CountByYearCategory(years, types), a.win.RecentStart)
}

// enforcementMetrics reports totals and the single largest penalty; the
// first of equal maxima wins.
func enforcementMetrics(enfs []window.Enforcement, m *Metrics) {
	var total float64
	var largest *window.Enforcement
	for i, f := range enfs {
		m.EnforcementActions++
		if m.LastPenaltyDate == nil || f.Date > *m.LastPenaltyDate {
			m.LastPenaltyDate = intPtr(f.Date)
		}
		if f.Penalty == nil {
			continue
		}
		total += *f.Penalty
		if largest == nil || *f.Penalty > *largest.Penalty {
			largest = &enfs[i]
		}
	}
	m.TotalPenalties = Float(trend.Round(total, 2))
	if largest != nil {
		m.EnfTypeLargestPenalty = largest.Type
		m.LargestPenalty = Float(trend.Round(*largest.Penalty, 2))
	}
}

func typesInYear(years []int, types []string, year int) []string {
	var out []string
	for i, y := range years {
		if y == year {
			out = append(out, types[i])
		}
	}
	return out
}
