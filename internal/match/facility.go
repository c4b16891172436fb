package match

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/searchterm"
	"github.com/sells-group/compliance-cli/internal/store"
)

// FacilityMatchTable receives facility strategy matches.
const FacilityMatchTable = "account_matched_facilities"

// FacilityTables names the relations the facility strategy reads.
type FacilityTables struct {
	// Facilities is the de-duplicated facility snapshot. It is (re)built as
	// a view from Handlers and OwnerOperators when both exist.
	Facilities     string
	Handlers       string
	OwnerOperators string
}

// DefaultFacilityTables are the RCRAInfo handler relation names.
var DefaultFacilityTables = FacilityTables{
	Facilities:     "handler_owner_operator",
	Handlers:       "hd_handler",
	OwnerOperators: "hd_owner_operator",
}

// FacilityColumns are the snapshot columns copied into every match row.
var FacilityColumns = []string{
	"handler_id",
	"activity_location",
	"source_type",
	"seq_number",
	"receive_date",
	"handler_name",
	"location_street_no",
	"location_street1",
	"location_street2",
	"location_city",
	"location_state",
	"location_zip",
	"location_country",
	"county_code",
	"contact_first_name",
	"contact_middle_initial",
	"contact_last_name",
	"contact_phone",
	"contact_phone_ext",
	"contact_fax",
	"contact_email_address",
	"contact_email_domain",
	"contact_title",
	"fed_waste_generator",
	"state_waste_generator",
	"short_term_generator",
	"current_record",
	"owner_names",
	"operator_names",
	"owner_emails",
	"operator_emails",
	"owner_email_domains",
	"operator_email_domains",
}

// facilityKey joins a handler to its owner/operator rows.
var facilityKey = []string{"handler_id", "activity_location", "source_type", "seq_number"}

// FacilityStrategy matches name variants by word-bounded regex against the
// handler, owner and operator names, and domains by exact membership
// against the contact, owner and operator e-mail domains.
type FacilityStrategy struct {
	tables FacilityTables
	log    *zap.Logger
}

// NewFacilityStrategy creates a FacilityStrategy. Empty table names fall
// back to DefaultFacilityTables.
func NewFacilityStrategy(tables FacilityTables) *FacilityStrategy {
	if tables.Facilities == "" {
		tables.Facilities = DefaultFacilityTables.Facilities
	}
	if tables.Handlers == "" {
		tables.Handlers = DefaultFacilityTables.Handlers
	}
	if tables.OwnerOperators == "" {
		tables.OwnerOperators = DefaultFacilityTables.OwnerOperators
	}
	return &FacilityStrategy{
		tables: tables,
		log:    zap.L().With(zap.String("component", "match.facility")),
	}
}

// Name implements Strategy.
func (s *FacilityStrategy) Name() string { return "facility" }

// Table implements Strategy.
func (s *FacilityStrategy) Table() string { return FacilityMatchTable }

// Prepare implements Strategy.
func (s *FacilityStrategy) Prepare(ctx context.Context, st store.Store) error {
	for _, name := range []string{s.tables.Facilities, s.tables.Handlers, s.tables.OwnerOperators} {
		if err := store.ValidIdent(name); err != nil {
			return err
		}
	}

	haveSources := true
	for _, name := range []string{s.tables.Handlers, s.tables.OwnerOperators} {
		ok, err := st.HasTable(ctx, name)
		if err != nil {
			return eris.Wrapf(err, "match: check table %s", name)
		}
		haveSources = haveSources && ok
	}

	switch {
	case haveSources:
		d := st.Dialect()
		for _, stmt := range d.ReplaceView(s.tables.Facilities, SnapshotViewSQL(d, s.tables.Handlers, s.tables.OwnerOperators)) {
			if _, err := st.Exec(ctx, stmt); err != nil {
				return eris.Wrapf(err, "match: build facility view %s", s.tables.Facilities)
			}
		}
		s.log.Debug("facility snapshot view rebuilt", zap.String("view", s.tables.Facilities))
	default:
		ok, err := st.HasTable(ctx, s.tables.Facilities)
		if err != nil {
			return eris.Wrapf(err, "match: check table %s", s.tables.Facilities)
		}
		if !ok {
			return store.RequireTables(ctx, st, s.tables.Handlers, s.tables.OwnerOperators)
		}
		s.log.Info("handler tables absent, using existing facility relation", zap.String("table", s.tables.Facilities))
	}

	return eris.Wrap(st.Migrate(ctx), "match: migrate")
}

// SnapshotViewSQL renders the facility snapshot query: current handler
// records joined with their owner (CO) and operator (CP) names, e-mails and
// e-mail domains aggregated per facility key.
func SnapshotViewSQL(d store.Dialect, handlers, ownerOperators string) string {
	agg := func(indicator, expr, alias string) string {
		return fmt.Sprintf("%s AS %s",
			d.StringAgg(fmt.Sprintf("CASE WHEN owner_operator_indicator = '%s' THEN %s END", indicator, expr), "'; '"),
			alias)
	}
	domain := d.EmailDomain("email")

	var on []string
	for _, k := range facilityKey {
		on = append(on, fmt.Sprintf("h.%[1]s = o.%[1]s", k))
	}

	handlerCols := make([]string, 0, len(FacilityColumns))
	for _, col := range FacilityColumns {
		switch {
		case col == "contact_email_domain":
			handlerCols = append(handlerCols, d.EmailDomain("h.contact_email_address")+" AS contact_email_domain")
		case strings.HasPrefix(col, "owner_") || strings.HasPrefix(col, "operator_"):
			handlerCols = append(handlerCols, "o."+col)
		default:
			handlerCols = append(handlerCols, "h."+col)
		}
	}

	return fmt.Sprintf(`SELECT DISTINCT %s
FROM %s h
LEFT JOIN (
	SELECT %s,
		%s,
		%s,
		%s,
		%s,
		%s,
		%s
	FROM %s
	GROUP BY %s
) o ON %s
WHERE h.current_record = 'Y'`,
		strings.Join(handlerCols, ", "),
		handlers,
		strings.Join(facilityKey, ", "),
		agg("CO", "owner_operator_name", "owner_names"),
		agg("CP", "owner_operator_name", "operator_names"),
		agg("CO", "email", "owner_emails"),
		agg("CP", "email", "operator_emails"),
		agg("CO", domain, "owner_email_domains"),
		agg("CP", domain, "operator_email_domains"),
		ownerOperators,
		strings.Join(facilityKey, ", "),
		strings.Join(on, " AND "),
	)
}

// BuildInsert implements Strategy. The three name flags test one shared
// alternation pattern; the three domain flags test one shared IN list.
// Missing halves render as FALSE so an empty term list never matches.
func (s *FacilityStrategy) BuildInsert(d store.Dialect, term model.SearchTerm) (*Statement, error) {
	names := searchterm.SplitTerms(term.NameTerms)
	domains := searchterm.SplitTerms(strings.ToLower(term.EmailTerms))

	pattern, err := WordPattern(names, d.WordBoundary())
	if err != nil {
		return nil, err
	}
	if pattern == "" && len(domains) == 0 {
		return nil, nil
	}

	args := store.NewArgs(d)
	sel := accountSelect(args, term.AccountRef)
	for _, col := range FacilityColumns {
		sel = append(sel, "h."+col)
	}

	for _, field := range []string{"h.handler_name", "h.owner_names", "h.operator_names"} {
		cond := "FALSE"
		if pattern != "" {
			cond = fmt.Sprintf("COALESCE(%s, FALSE)", d.RegexpMatch(d.Upper(field), args.Add(pattern)))
		}
		sel = append(sel, cond)
	}
	for _, field := range []string{"h.contact_email_domain", "h.owner_email_domains", "h.operator_email_domains"} {
		cond := "FALSE"
		if len(domains) > 0 {
			cond = fmt.Sprintf("COALESCE(LOWER(%s) IN (%s), FALSE)", field, args.List(domains))
		}
		sel = append(sel, cond)
	}

	flags := flagNames()
	for i, f := range flags {
		sel[len(sel)-len(flags)+i] += " AS " + f
	}

	cols := make([]string, 0, len(model.AccountColumns)+len(FacilityColumns)+len(flags))
	cols = append(cols, model.AccountColumns...)
	cols = append(cols, FacilityColumns...)
	cols = append(cols, flags...)

	sql := fmt.Sprintf(`INSERT INTO %s (%s)
SELECT * FROM (
	SELECT %s
	FROM %s h
) m
WHERE m.%s`,
		FacilityMatchTable,
		strings.Join(cols, ", "),
		strings.Join(sel, ",\n\t\t"),
		s.tables.Facilities,
		strings.Join(flags, " OR m."),
	)
	return &Statement{SQL: sql, Args: args.Values()}, nil
}
