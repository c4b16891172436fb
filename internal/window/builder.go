package window

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/store"
)

// Builder runs the view queries of one window against a store.
type Builder struct {
	store   store.Store
	tables  Tables
	win     Window
	threads int
	log     *zap.Logger
}

// NewBuilder creates a Builder. threads bounds the number of view queries
// in flight; values below 1 run them one at a time.
func NewBuilder(st store.Store, tables Tables, win Window, threads int) *Builder {
	if threads < 1 {
		threads = 1
	}
	return &Builder{
		store:   st,
		tables:  tables.withDefaults(),
		win:     win,
		threads: threads,
		log:     zap.L().With(zap.String("component", "window")),
	}
}

// Build fetches the four views. A windowed view holds each event once for
// every account and contact it is linked to, so an event reached through
// two contacts appears twice; events with unparseable dates are dropped.
func (b *Builder) Build(ctx context.Context) (*Views, error) {
	if err := store.RequireTables(ctx, b.store,
		b.tables.Matched, b.tables.Evaluations, b.tables.Violations, b.tables.Enforcements); err != nil {
		return nil, err
	}

	d := b.store.Dialect()
	v := &Views{Window: b.win}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(b.threads)

	g.Go(func() error {
		var err error
		v.Evaluations, err = b.evaluations(gCtx, EvaluationsSQL(d, b.tables, b.win))
		return err
	})
	g.Go(func() error {
		var err error
		v.Violations, err = b.violations(gCtx, ViolationsSQL(d, b.tables, b.win))
		return err
	})
	g.Go(func() error {
		var err error
		v.Enforcements, err = b.enforcements(gCtx, EnforcementsSQL(d, b.tables, b.win))
		return err
	})
	g.Go(func() error {
		var err error
		v.Facilities, err = b.facilities(gCtx, FacilitiesSQL(b.tables))
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	b.log.Info("window views built",
		zap.Stringer("window", b.win),
		zap.Int("evaluations", len(v.Evaluations)),
		zap.Int("violations", len(v.Violations)),
		zap.Int("enforcements", len(v.Enforcements)),
		zap.Int("facilities", len(v.Facilities)),
	)
	return v, nil
}

// eventRow is one scanned windowed row: the view's own columns followed by
// the link columns.
type eventRow struct {
	cols []string
	link Link
}

// scan runs q and hands every row, as text, to fn.
func (b *Builder) scan(ctx context.Context, view string, q Query, ncols int, fn func(eventRow) error) error {
	rows, err := b.store.Query(ctx, q.SQL, q.Args...)
	if err != nil {
		return eris.Wrapf(err, "window: query %s", view)
	}
	defer rows.Close()

	vals := make([]string, ncols+len(linkColumns))
	dest := make([]any, len(vals))
	for i := range vals {
		dest[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return eris.Wrapf(err, "window: scan %s", view)
		}
		cols := make([]string, ncols)
		for i := range cols {
			cols[i] = strings.TrimSpace(vals[i])
		}
		if err := fn(eventRow{cols: cols, link: linkFrom(vals[ncols:])}); err != nil {
			return err
		}
	}
	return eris.Wrapf(rows.Err(), "window: read %s", view)
}

func linkFrom(vals []string) Link {
	return Link{
		AccountRef: model.AccountRef{
			AccountID:       strings.TrimSpace(vals[0]),
			AccountName:     strings.TrimSpace(vals[1]),
			Tier:            strings.TrimSpace(vals[2]),
			ParentAccountID: strings.TrimSpace(vals[3]),
			ParentAccount:   strings.TrimSpace(vals[4]),
			AccountOwner:    strings.TrimSpace(vals[5]),
			BDAOwner:        strings.TrimSpace(vals[6]),
			CSOwner:         strings.TrimSpace(vals[7]),
		},
		ContactEmail: strings.TrimSpace(vals[8]),
	}
}

// dedupe tracks (event, account, contact) keys already emitted. The same
// facility can be matched to an account through several snapshot rows.
type dedupe map[string]struct{}

func (s dedupe) first(pk string, l Link) bool {
	key := pk + "\x00" + l.AccountID + "\x00" + l.ContactEmail
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = struct{}{}
	return true
}

// dated parses the event date and checks it against the window.
func (b *Builder) dated(view, pk, raw string) (date, year int, ok bool) {
	t, ok := ParseDate(raw)
	if !ok {
		b.log.Debug("dropping event with unparseable date",
			zap.String("view", view), zap.String("pk", pk), zap.String("date", raw))
		return 0, 0, false
	}
	date = DateInt(t)
	if !b.win.Contains(date) {
		return 0, 0, false
	}
	return date, t.Year(), true
}

func eventPK(parts ...string) string {
	return strings.Join(parts, "|")
}

func (b *Builder) evaluations(ctx context.Context, q Query) ([]Evaluation, error) {
	var out []Evaluation
	seen := dedupe{}
	err := b.scan(ctx, "evaluations", q, len(evaluationColumns), func(r eventRow) error {
		c := r.cols
		pk := eventPK(c[0], c[1], c[2], c[3], c[4])
		date, year, ok := b.dated("evaluations", pk, c[3])
		if !ok || !seen.first(pk, r.link) {
			return nil
		}
		out = append(out, Evaluation{
			PK:             pk,
			HandlerID:      c[0],
			Date:           date,
			Year:           year,
			Type:           c[5],
			FoundViolation: strings.EqualFold(c[6], "Y"),
			Link:           r.link,
		})
		return nil
	})
	return out, err
}

func (b *Builder) violations(ctx context.Context, q Query) ([]Violation, error) {
	var out []Violation
	seen := dedupe{}
	err := b.scan(ctx, "violations", q, len(violationColumns), func(r eventRow) error {
		c := r.cols
		pk := eventPK(c[0], c[1], c[2], c[3])
		date, year, ok := b.dated("violations", pk, c[4])
		if !ok || !seen.first(pk, r.link) {
			return nil
		}
		v := Violation{
			PK:        pk,
			HandlerID: c[0],
			Date:      date,
			Year:      year,
			Type:      c[5],
			Link:      r.link,
		}
		if rtc, ok := ParseDate(c[6]); ok {
			determined, _ := ParseDate(c[4])
			days := DaysBetween(determined, rtc)
			v.DaysToResolve = &days
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (b *Builder) enforcements(ctx context.Context, q Query) ([]Enforcement, error) {
	var out []Enforcement
	seen := dedupe{}
	err := b.scan(ctx, "enforcements", q, len(enforcementColumns), func(r eventRow) error {
		c := r.cols
		pk := eventPK(c[0], c[1], c[2], c[3], c[4])
		date, year, ok := b.dated("enforcements", pk, c[3])
		if !ok || !seen.first(pk, r.link) {
			return nil
		}
		out = append(out, Enforcement{
			PK:        pk,
			HandlerID: c[0],
			Date:      date,
			Year:      year,
			Type:      c[5],
			Penalty:   parseAmount(c[6]),
			Link:      r.link,
		})
		return nil
	})
	return out, err
}

func (b *Builder) facilities(ctx context.Context, q Query) ([]FacilityLink, error) {
	var out []FacilityLink
	seen := dedupe{}
	err := b.scan(ctx, "facilities", q, 1, func(r eventRow) error {
		if r.cols[0] == "" || !seen.first(r.cols[0], r.link) {
			return nil
		}
		out = append(out, FacilityLink{HandlerID: r.cols[0], Link: r.link})
		return nil
	})
	return out, err
}

// parseAmount is a null-safe numeric cast: blank, malformed and non-finite
// amounts are unknown, not zero.
func parseAmount(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}
