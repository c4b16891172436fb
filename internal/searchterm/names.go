// Package searchterm turns account export rows into canonical match keys:
// name spelling variants and validated web/e-mail domains.
package searchterm

import (
	"regexp"
	"sort"
	"strings"
)

// TermSep separates entries in name_terms and email_terms.
const TermSep = ";"

var (
	curlyQuotes  = strings.NewReplacer("\u2019", "'", "\u2018", "'")
	possessiveRe = regexp.MustCompile(`'s\b`)
	pluralPossRe = regexp.MustCompile(`s'(\W|$)`)
)

// NameTerms returns the sorted, de-duplicated spelling variants of an
// account name joined with ';'. For "O'Brien's Waste" that is
// "O Briens Waste;O'Brien Waste;O'Brien's Waste;O'Briens Waste;OBriens Waste".
func NameTerms(name string) string {
	return JoinTerms(NameVariants(name))
}

// NameVariants returns the variant set of NameTerms, sorted.
func NameVariants(name string) []string {
	name = curlyQuotes.Replace(name)
	collapsed := possessiveRe.ReplaceAllString(name, "s")

	return uniqueSorted([]string{
		name,
		strings.ReplaceAll(name, "'", ""),
		strings.ReplaceAll(collapsed, "'", " "),
		possessiveRe.ReplaceAllString(name, ""),
		collapsed,
		pluralPossRe.ReplaceAllString(name, "s$1"),
	})
}

// SplitTerms splits a ';'-joined term list, trimming and dropping empties.
func SplitTerms(s string) []string {
	var out []string
	for _, t := range strings.Split(s, TermSep) {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// JoinTerms joins terms with ';' after trimming, de-duplicating and sorting.
func JoinTerms(terms []string) string {
	return strings.Join(uniqueSorted(terms), TermSep)
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
