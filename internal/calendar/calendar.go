// Package calendar implements the day-of-week business-day arithmetic
// SessionRunner uses to advance multi-day runs (spec §5, §9). This is
// intentionally stdlib-only: date outputs are part of the manifest
// contract (spec §9), so pinning a third-party calendar library across
// platforms is not worth the risk of a silent behavior drift.
package calendar

import (
	"fmt"
	"time"
)

const isoDateLayout = "2006-01-02"

// NextBusinessDay advances date (YYYY-MM-DD) by one calendar day,
// skipping Saturday and Sunday. There is no holiday calendar in the
// core (spec §5): Friday advances to Monday, and any other weekday
// advances to the next day.
func NextBusinessDay(date string) (string, error) {
	t, err := time.Parse(isoDateLayout, date)
	if err != nil {
		return "", fmt.Errorf("calendar: parse date %q: %w", date, err)
	}
	next := t.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next.Format(isoDateLayout), nil
}
