package match

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
)

// WordPattern builds a single alternation of word-bounded, regex-escaped,
// upper-cased terms, e.g. `(\bACME\b|\bACME CORP\b)`. boundary is the word
// boundary escape of the target regex engine. A term that starts or ends
// with punctuation ("A.B. (USA)") gets no boundary on that side. An empty
// result means there is nothing to match; callers must not embed it as a
// pattern, since an empty alternation matches every row.
func WordPattern(terms []string, boundary string) (string, error) {
	var alts, goAlts []string
	for _, t := range terms {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		quoted := regexp.QuoteMeta(t)
		alts = append(alts, bounded(t, quoted, boundary))
		goAlts = append(goAlts, bounded(t, quoted, `\b`))
	}
	if len(alts) == 0 {
		return "", nil
	}

	// Validate with RE2 before the pattern reaches the store.
	if _, err := regexp.Compile("(" + strings.Join(goAlts, "|") + ")"); err != nil {
		return "", eris.Wrap(err, "match: invalid name pattern")
	}
	return "(" + strings.Join(alts, "|") + ")", nil
}

func bounded(term, quoted, boundary string) string {
	if isWordByte(term[0]) {
		quoted = boundary + quoted
	}
	if isWordByte(term[len(term)-1]) {
		quoted += boundary
	}
	return quoted
}

// isWordByte matches the ASCII \w class used by both boundary escapes.
func isWordByte(c byte) bool {
	return c == '_' || ('0' <= c && c <= '9') || ('A' <= c && c <= 'Z') || ('a' <= c && c <= 'z')
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern returns an upper-cased LIKE pattern matching s anywhere,
// with LIKE metacharacters escaped by '\'.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToUpper(strings.TrimSpace(s))) + "%"
}
