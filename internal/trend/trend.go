// Package trend detects trends and anomalies in yearly event counts: the
// normalized least-squares slope, the z-score spike year and the category
// whose share of events is rising.
//
// Every function is total: empty series, zero variance and zero
// denominators produce a defined zero or "no signal" result.
package trend

import (
	"math"
	"sort"
)

// SpikeThreshold is the z-score at or above which a year is a spike.
const SpikeThreshold = 2.0

// zeroBase replaces a zero first-year count in the slope normalization.
const zeroBase = 1e-9

// tolerance absorbs floating point error in threshold and zero checks.
const tolerance = 1e-9

// Point is the event count of one year.
type Point struct {
	Year  int
	Count float64
}

// Series is a yearly count series ordered by year.
type Series []Point

// CountByYear groups events by year and counts them.
func CountByYear(years []int) Series {
	counts := make(map[int]float64, len(years))
	for _, y := range years {
		counts[y]++
	}
	s := make(Series, 0, len(counts))
	for y, n := range counts {
		s = append(s, Point{Year: y, Count: n})
	}
	sort.Slice(s, func(i, j int) bool { return s[i].Year < s[j].Year })
	return s
}

// SlopePct is the least-squares slope of count against year as a
// percentage of the first year's count, rounded to two decimals. It is 0
// when fewer than two distinct years are present or every count is zero.
func SlopePct(s Series) float64 {
	if len(s) == 0 {
		return 0
	}
	years := make(map[int]struct{}, len(s))
	var sum float64
	for _, p := range s {
		years[p.Year] = struct{}{}
		sum += p.Count
	}
	if len(years) < 2 || sum == 0 {
		return 0
	}

	n := float64(len(s))
	var mx, my float64
	for _, p := range s {
		mx += float64(p.Year)
		my += p.Count
	}
	mx /= n
	my /= n

	var sxy, sxx float64
	for _, p := range s {
		dx := float64(p.Year) - mx
		sxy += dx * (p.Count - my)
		sxx += dx * dx
	}
	slope := sxy / sxx

	base := s[0].Count
	if base == 0 {
		base = zeroBase
	}
	return Round(100*slope/base, 2)
}

// SpikeYear returns the year with the highest population z-score when that
// score reaches SpikeThreshold. A series without variance has no spike.
// Ties go to the earliest year.
func SpikeYear(s Series) (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	n := float64(len(s))
	var mean float64
	for _, p := range s {
		mean += p.Count
	}
	mean /= n

	var ss float64
	for _, p := range s {
		ss += (p.Count - mean) * (p.Count - mean)
	}
	std := math.Sqrt(ss / n)
	if std < tolerance {
		return 0, false
	}

	best, bestZ := 0, math.Inf(-1)
	for i, p := range s {
		if z := (p.Count - mean) / std; z > bestZ {
			best, bestZ = i, z
		}
	}
	if bestZ < SpikeThreshold-tolerance {
		return 0, false
	}
	return s[best].Year, true
}

// CategoryCount is the event count of one category in one year.
type CategoryCount struct {
	Year     int
	Category string
	Count    float64
}

// CountByYearCategory groups (year, category) observations and counts them.
func CountByYearCategory(years []int, categories []string) []CategoryCount {
	type key struct {
		year int
		cat  string
	}
	counts := map[key]float64{}
	for i, y := range years {
		counts[key{y, categories[i]}]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, CategoryCount{Year: k.year, Category: k.cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// EmergingCategory splits rows into a recent period (year >= recentStart)
// and an early period, and returns the category with the largest ratio of
// recent share to early share. Categories absent from either period, or
// with a zero early share, carry no ratio. There is no signal when either
// period is empty. Ties go to the lexicographically smallest category.
func EmergingCategory(rows []CategoryCount, recentStart int) (string, bool) {
	recent := map[string]float64{}
	early := map[string]float64{}
	var recentTotal, earlyTotal float64
	var haveRecent, haveEarly bool
	for _, r := range rows {
		if r.Year >= recentStart {
			recent[r.Category] += r.Count
			recentTotal += r.Count
			haveRecent = true
		} else {
			early[r.Category] += r.Count
			earlyTotal += r.Count
			haveEarly = true
		}
	}
	if !haveRecent || !haveEarly {
		return "", false
	}
	if earlyTotal == 0 {
		earlyTotal = 1
	}

	cats := make([]string, 0, len(recent))
	for c := range recent {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	best, bestRatio, found := "", 0.0, false
	for _, c := range cats {
		e, ok := early[c]
		if !ok {
			continue
		}
		ratio := (recent[c] / recentTotal) / (e / earlyTotal)
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			continue
		}
		if !found || ratio > bestRatio {
			best, bestRatio, found = c, ratio, true
		}
	}
	return best, found
}

// Mode returns the most frequent value. Ties go to the lexicographically
// smallest value.
func Mode(values []string) (string, bool) {
	if len(values) == 0 {
		return "", false
	}
	counts := map[string]int{}
	for _, v := range values {
		counts[v]++
	}
	best, bestN := "", 0
	for v, n := range counts {
		if n > bestN || (n == bestN && v < best) {
			best, bestN = v, n
		}
	}
	return best, true
}

// Round rounds x half away from zero to the given decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
