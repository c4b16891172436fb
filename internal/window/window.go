// Package window builds the time-bounded event views the compliance profile
// is computed from: evaluations, violations and enforcement actions inside
// the lookback window, plus the unbounded facility breadth view.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultLookbackYears is the number of complete calendar years in a window.
const DefaultLookbackYears = 5

// dateLayout is the YYYYMMDD text form used by the event tables.
const dateLayout = "20060102"

// Window is a span of complete calendar years ending at the last fully
// elapsed year.
type Window struct {
	CurrentYear int
	YearMin     int
	YearMax     int

	// RecentStart is the first year of the "recent" sub-period used for
	// emerging-category detection.
	RecentStart int
}

// New returns the window of lookbackYears complete years before now's year.
func New(now time.Time, lookbackYears int) (Window, error) {
	if lookbackYears < 1 {
		return Window{}, eris.Errorf("window: lookback must be at least 1 year, got %d", lookbackYears)
	}
	cur := now.Year()
	return Window{
		CurrentYear: cur,
		YearMin:     cur - lookbackYears,
		YearMax:     cur - 1,
		RecentStart: cur - 1,
	}, nil
}

// Begin is the first day of the window as YYYYMMDD.
func (w Window) Begin() string { return fmt.Sprintf("%04d0101", w.YearMin) }

// End is the last day of the window as YYYYMMDD.
func (w Window) End() string { return fmt.Sprintf("%04d1231", w.YearMax) }

// Contains reports whether a YYYYMMDD date falls inside the window.
func (w Window) Contains(date int) bool {
	return date >= w.YearMin*10000+101 && date <= w.YearMax*10000+1231
}

func (w Window) String() string {
	return fmt.Sprintf("%04d-01-01..%04d-12-31", w.YearMin, w.YearMax)
}

// ParseDate parses a YYYYMMDD date strictly. Anything else, including an
// empty value, is not a date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) != len(dateLayout) {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateInt renders t as the integer YYYYMMDD.
func DateInt(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// DaysBetween returns the whole days from start to end.
func DaysBetween(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}
