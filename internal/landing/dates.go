package landing

import (
	"fmt"
	"strings"
	"time"
)

// Day-first layouts accepted from uploads, four-digit years first.
var (
	dayFirstLayouts = []string{
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
	}
	dayFirstShortYearLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "2.1.06", "02.01.06",
	}
)

// isoDate is the layout persisted on LandingStatus.
const isoDate = "2006-01-02"

// ToISODate converts a day-first date (DD/MM/YYYY and its separator
// variants) to YYYY-MM-DD. Already-ISO input is returned as-is. An empty
// string converts to an empty string.
func ToISODate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, err := time.Parse(isoDate, s); err == nil {
		return t.Format(isoDate), nil
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), nil
		}
	}
	for _, layout := range dayFirstShortYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate), nil
		}
	}
	return "", fmt.Errorf("unrecognised date %q", s)
}
