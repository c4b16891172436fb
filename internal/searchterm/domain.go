package searchterm

import (
	"context"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/compliance-cli/internal/tabular"
)

// Domains that never identify an account: social networks, job boards,
// review sites and webmail providers.
var defaultBlockedDomains = []string{
	"yelp.com",
	"linkedin.com", "facebook.com", "twitter.com", "instagram.com", "indeed.com",
	"glassdoor.com", "monster.com", "careerbuilder.com",
	"gmail.com", "hotmail.com", "yahoo.com", "outlook.com", "aol.com", "icloud.com",
	"me.com", "msn.com", "live.com", "mail.com", "protonmail.com", "yandex.com", "zoho.com",
}

// Document links pasted into website columns.
var blockedFragments = []string{".pdf", ".doc", ".txt", ".html"}

var (
	schemeRe      = regexp.MustCompile(`^[a-z][a-z0-9+.-]*://`)
	domainShapeRe = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]+\.[a-z]{2,}$`)
	trailingNumRe = regexp.MustCompile(`\d+$`)
	cellSplitter  = strings.NewReplacer(";", ",", "|", ",", " ", ",", "\t", ",", "\n", ",")
)

// CleanDomain reduces a URL, e-mail address or bare host to a lower-case
// host name. Anything up to '@', the scheme, a leading "www." and
// everything from the first '/', '?' or '#' are removed.
func CleanDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		s = s[i+1:]
	}
	s = schemeRe.ReplaceAllString(s, "")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// Blocklist rejects domains that contain a listed domain on label
// boundaries ("yahoo.com.mx", "m.facebook.com"), and names carrying a
// document-extension fragment anywhere.
type Blocklist struct {
	domains   map[string]struct{}
	fragments []string
}

// NewBlocklist returns the default blocklist extended with extra domains.
func NewBlocklist(extra ...string) *Blocklist {
	b := &Blocklist{
		domains:   make(map[string]struct{}, len(defaultBlockedDomains)+len(extra)),
		fragments: blockedFragments,
	}
	for _, d := range defaultBlockedDomains {
		b.domains[d] = struct{}{}
	}
	for _, d := range extra {
		if d = CleanDomain(d); d != "" {
			b.domains[d] = struct{}{}
		}
	}
	return b
}

// Len returns the number of blocked domains.
func (b *Blocklist) Len() int { return len(b.domains) }

// Blocked reports whether domain contains a listed domain on label
// boundaries, or carries a blocked fragment.
func (b *Blocklist) Blocked(domain string) bool {
	for _, f := range b.fragments {
		if strings.Contains(domain, f) {
			return true
		}
	}
	for e := range b.domains {
		if containsLabels(domain, e) {
			return true
		}
	}
	return false
}

// containsLabels reports whether entry occurs in host as whole labels.
func containsLabels(host, entry string) bool {
	return host == entry ||
		strings.HasPrefix(host, entry+".") ||
		strings.HasSuffix(host, "."+entry) ||
		strings.Contains(host, "."+entry+".")
}

// Valid reports whether an already-cleaned domain is usable as a match key.
func (b *Blocklist) Valid(domain string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" || b.Blocked(domain) {
		return false
	}
	if trailingNumRe.MatchString(domain) {
		return false
	}
	if !domainShapeRe.MatchString(domain) {
		return false
	}
	// acme123.com
	labels := strings.Split(domain, ".")
	sld := labels[len(labels)-2]
	if sld == "" || isDigit(sld[len(sld)-1]) {
		return false
	}
	return true
}

var defaultBlocklist = NewBlocklist()

// IsValidDomain validates domain against the default blocklist.
func IsValidDomain(domain string) bool {
	return defaultBlocklist.Valid(domain)
}

// ReadBlocklist reads extra blocked domains from a header-less CSV: the
// first field of each row is a domain, blank rows are skipped.
func ReadBlocklist(ctx context.Context, r io.Reader) ([]string, error) {
	rows, err := tabular.ReadCSVRows(ctx, r)
	if err != nil {
		return nil, eris.Wrap(err, "searchterm: read blocklist")
	}
	var out []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		if d := strings.ToLower(strings.TrimSpace(row[0])); d != "" {
			out = append(out, d)
		}
	}
	return out, nil
}

// ReadBlocklistFile is ReadBlocklist over a file path.
func ReadBlocklistFile(ctx context.Context, path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "searchterm: open blocklist %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadBlocklist(ctx, f)
}

// splitCell breaks a free-text domain cell into candidate tokens.
func splitCell(cell string) []string {
	var out []string
	for _, tok := range strings.Split(cellSplitter.Replace(cell), ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
