package records

import (
	"sort"
	"time"
)

// Diff returns the fresh records whose identity does not appear in the
// ledger. Matches are exact on every feed-sourced field; SeenAt never
// participates. Each surviving record is stamped with seenAt (one capture
// time for the whole run) and the result is sorted by disclosure date
// ascending, amount descending, so the oldest activity is reported first
// and ties surface the largest spend. Repeated identities within fresh
// collapse to their first occurrence, keeping the ledger free of
// duplicates after merge.
//
// An empty result means nothing new, not an error.
func Diff(fresh, ledger []Expenditure, seenAt time.Time) []Expenditure {
	seen := make(map[Identity]struct{}, len(ledger)+len(fresh))
	for _, e := range ledger {
		seen[e.Identity()] = struct{}{}
	}

	out := make([]Expenditure, 0, len(fresh))
	for _, e := range fresh {
		key := e.Identity()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		e.SeenAt = seenAt
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// Merge appends new records to the ledger. Callers are expected to have
// produced them via Diff, so no identity re-check happens here.
func Merge(ledger, fresh []Expenditure) []Expenditure {
	merged := make([]Expenditure, 0, len(ledger)+len(fresh))
	merged = append(merged, ledger...)
	merged = append(merged, fresh...)
	return merged
}
