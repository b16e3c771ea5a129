package reports

import (
	"sort"
	"strings"
	"time"

	"quicksale/backend/internal/domain"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// newer reports whether date a sorts before date b in a newest-first listing.
// Recognised timestamps order by instant and come before free-form labels,
// which order by descending string value.
func newer(a, b string) bool {
	ta, okA := parseDate(a)
	tb, okB := parseDate(b)
	switch {
	case okA && okB:
		return ta.After(tb)
	case okA != okB:
		return okA
	default:
		return a > b
	}
}

func sortNewestFirst(reports []domain.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return newer(reports[i].Date, reports[j].Date)
	})
}

// datePart is the calendar portion of a label: everything before the first space.
func datePart(date string) string {
	if i := strings.IndexByte(date, ' '); i >= 0 {
		return date[:i]
	}
	return date
}
