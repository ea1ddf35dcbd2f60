// Package records holds the independent-expenditure record model and the
// pure set operations the pipeline runs over it: deduplication against the
// persisted ledger, retention trimming, and the CSV ledger codec.
package records

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-date form used in the ledger.
const DateLayout = "2006-01-02"

// dateLayouts are the accepted inputs, in trial order. The feed reports
// US-style dates; ledgers written by earlier versions of the bot may carry
// a full timestamp.
var dateLayouts = []string{
	DateLayout,
	"01/02/2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Expenditure is one disclosed independent expenditure.
//
// Invariants:
//   - Amount is non-negative
//   - PAC, Stance, Candidate, and Amount are always present (normalization
//     rejects entries missing any of them)
//   - Date carries no time-of-day significance beyond ordering
//   - SeenAt is assigned once, when the record first enters the ledger, and
//     is excluded from record identity
type Expenditure struct {
	CommitteeID string
	PAC         string
	Stance      string
	Candidate   string
	District    string
	Amount      decimal.Decimal
	Note        string
	Party       string
	Payee       string
	Date        time.Time
	Origin      string
	Source      string
	SeenAt      time.Time
}

// Identity is the comparable dedup key: every feed-sourced field, excluding
// SeenAt. Amount and Date are canonicalized so that "5000", "5000.0" and
// "5000.00" (or two parses of the same calendar date) collapse to one key.
type Identity struct {
	CommitteeID string
	PAC         string
	Stance      string
	Candidate   string
	District    string
	Amount      string
	Note        string
	Party       string
	Payee       string
	Date        string
	Origin      string
	Source      string
}

// Identity returns the record's dedup key.
func (e Expenditure) Identity() Identity {
	return Identity{
		CommitteeID: e.CommitteeID,
		PAC:         e.PAC,
		Stance:      e.Stance,
		Candidate:   e.Candidate,
		District:    e.District,
		Amount:      e.Amount.String(),
		Note:        e.Note,
		Party:       e.Party,
		Payee:       e.Payee,
		Date:        e.Date.Format(DateLayout),
		Origin:      e.Origin,
		Source:      e.Source,
	}
}

// ParseDate parses a disclosure date in any of the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// ParseAmount parses a monetary amount, rejecting negatives.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}
