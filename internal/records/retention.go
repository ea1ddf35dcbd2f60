package records

import "time"

// Trim drops every record whose disclosure date falls strictly before
// now minus windowDays. It is a pure filter: idempotent for a fixed
// cutoff, never an error.
func Trim(ledger []Expenditure, now time.Time, windowDays int) []Expenditure {
	cutoff := now.AddDate(0, 0, -windowDays)
	kept := make([]Expenditure, 0, len(ledger))
	for _, e := range ledger {
		if e.Date.Before(cutoff) {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}
