package searchterm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-cli/internal/model"
	"github.com/sells-group/compliance-cli/internal/tabular"
)

// RequiredColumns are the columns of a normalized search-term file.
var RequiredColumns = []string{"account_id", "account_name", "name_terms", "email_terms"}

// DomainColumns are scanned, in order, for web and e-mail domains.
var DomainColumns = []string{
	"Website",
	"FRS Domain",
	"Domain for Salesloft",
	"Extra Domains",
	"SalesLoft Domain",
	"Other Domains (ZoomInfo)",
	"Email",
	"website",
	"email",
}

// accountColumns maps AccountRef fields to the header names of one export
// flavour.
type accountColumns struct {
	ID, Name, Tier, ParentID, Parent, Owner, BDA, CS string
}

// CRM report export headers.
var exportColumns = accountColumns{
	ID:       "Account ID18",
	Name:     "Account Name",
	Tier:     "RY2025 Account Tier",
	ParentID: "Parent Account ID",
	Parent:   "Parent Account",
	Owner:    "Account Owner",
	BDA:      "BDA Owner",
	CS:       "CS Owner",
}

var snakeColumns = accountColumns{
	ID:       "account_id",
	Name:     "account_name",
	Tier:     "tier",
	ParentID: "parent_account_id",
	Parent:   "parent_account",
	Owner:    "account_owner",
	BDA:      "bda_owner",
	CS:       "cs_owner",
}

func columnsFor(has func(string) bool) accountColumns {
	if has(exportColumns.Name) {
		return exportColumns
	}
	return snakeColumns
}

// MissingColumnsError reports an input that can be neither read as search
// terms nor normalized into them.
type MissingColumnsError struct {
	Path    string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("searchterm: %s is missing required columns: %s", e.Path, strings.Join(e.Missing, ", "))
}

// Normalizer derives SearchTerm rows from account export rows.
type Normalizer struct {
	blocklist *Blocklist
	log       *zap.Logger
}

// NewNormalizer returns a Normalizer whose domain blocklist is the default
// list plus extraBlocked.
func NewNormalizer(extraBlocked ...string) *Normalizer {
	return &Normalizer{
		blocklist: NewBlocklist(extraBlocked...),
		log:       zap.L().With(zap.String("component", "searchterm")),
	}
}

// Domains returns the sorted set of valid domains found in the record's
// domain columns. Unusable cells contribute nothing.
func (n *Normalizer) Domains(rec tabular.Record) []string {
	var found []string
	for _, col := range DomainColumns {
		for _, tok := range splitCell(rec.Get(col)) {
			if d := CleanDomain(tok); n.blocklist.Valid(d) {
				found = append(found, d)
			}
		}
	}
	return uniqueSorted(found)
}

// FromRecord builds the SearchTerm for one account row.
func (n *Normalizer) FromRecord(rec tabular.Record) model.SearchTerm {
	cols := columnsFor(rec.Has)
	ref := accountRef(rec, cols)
	return model.SearchTerm{
		AccountRef: ref,
		NameTerms:  NameTerms(ref.AccountName),
		EmailTerms: strings.Join(n.Domains(rec), TermSep),
	}
}

// Normalize converts an account table into one SearchTerm per unique
// account_id. The first row of a repeated id wins.
func (n *Normalizer) Normalize(t *tabular.Table) ([]model.SearchTerm, error) {
	cols := columnsFor(func(c string) bool { return t.Has(c) })
	if !t.Has(cols.ID, cols.Name) {
		return nil, &MissingColumnsError{Missing: t.Missing(cols.ID, cols.Name)}
	}

	seen := make(map[string]struct{}, t.Len())
	terms := make([]model.SearchTerm, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		st := n.FromRecord(t.Record(i))
		if !n.keep(st, i, seen) {
			continue
		}
		terms = append(terms, st)
	}
	return terms, nil
}

func (n *Normalizer) keep(st model.SearchTerm, row int, seen map[string]struct{}) bool {
	if st.AccountID == "" {
		n.log.Warn("skipping row without account id", zap.Int("row", row+2), zap.String("account_name", st.AccountName))
		return false
	}
	if _, dup := seen[st.AccountID]; dup {
		n.log.Warn("duplicate account id, keeping first row", zap.String("account_id", st.AccountID), zap.Int("row", row+2))
		return false
	}
	seen[st.AccountID] = struct{}{}
	return true
}

func accountRef(rec tabular.Record, cols accountColumns) model.AccountRef {
	return model.AccountRef{
		AccountID:       rec.Get(cols.ID),
		AccountName:     rec.Get(cols.Name),
		Tier:            rec.Get(cols.Tier),
		ParentAccountID: rec.Get(cols.ParentID),
		ParentAccount:   rec.Get(cols.Parent),
		AccountOwner:    rec.Get(cols.Owner),
		BDAOwner:        rec.Get(cols.BDA),
		CSOwner:         rec.Get(cols.CS),
	}
}

// Load reads search terms from path. A file that already carries the
// search-term columns is used as is (terms re-canonicalized); any other
// account export is normalized on the fly.
func Load(ctx context.Context, path string, n *Normalizer) ([]model.SearchTerm, error) {
	t, err := tabular.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	if !t.Has(RequiredColumns...) {
		n.log.Info("input lacks search-term columns, normalizing account export",
			zap.String("path", path),
			zap.Strings("missing", t.Missing(RequiredColumns...)),
		)
		terms, err := n.Normalize(t)
		var mce *MissingColumnsError
		if errors.As(err, &mce) {
			mce.Path = path
		}
		return terms, err
	}

	seen := make(map[string]struct{}, t.Len())
	terms := make([]model.SearchTerm, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		rec := t.Record(i)
		st := model.SearchTerm{
			AccountRef: accountRef(rec, snakeColumns),
			NameTerms:  JoinTerms(SplitTerms(rec.Get("name_terms"))),
			EmailTerms: JoinTerms(SplitTerms(strings.ToLower(rec.Get("email_terms")))),
		}
		if !n.keep(st, i, seen) {
			continue
		}
		terms = append(terms, st)
	}
	return terms, nil
}

// Write stores terms as CSV at path, creating the parent directory.
func Write(path string, terms []model.SearchTerm) error {
	b, err := csvutil.Marshal(terms)
	if err != nil {
		return eris.Wrap(err, "searchterm: marshal")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "searchterm: create dir for %s", path)
	}
	return eris.Wrapf(os.WriteFile(path, b, 0o644), "searchterm: write %s", path)
}
