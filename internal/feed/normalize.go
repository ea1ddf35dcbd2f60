package feed

import (
	"strings"

	"pacwatch/internal/records"
)

// Normalize converts raw entries into typed records, preserving feed order.
// Whitespace-only fields count as absent. Entries missing any of the
// essential fields (contributor, stance, candidate, amount), or whose
// amount or date fails to parse, are dropped; a handful of bad entries in
// a filing batch is routine and never worth failing the run over. Callers
// wanting the dropped count compare lengths.
func Normalize(entries []Entry) []records.Expenditure {
	out := make([]records.Expenditure, 0, len(entries))
	for _, entry := range entries {
		e, ok := normalizeEntry(entry)
		if !ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

func normalizeEntry(entry Entry) (records.Expenditure, bool) {
	pac := blankToEmpty(entry.PAC)
	stance := blankToEmpty(entry.Stance)
	candidate := blankToEmpty(entry.Candidate)
	amountStr := blankToEmpty(entry.Amount)
	if pac == "" || stance == "" || candidate == "" || amountStr == "" {
		return records.Expenditure{}, false
	}

	amount, err := records.ParseAmount(amountStr)
	if err != nil {
		return records.Expenditure{}, false
	}
	date, err := records.ParseDate(entry.Date)
	if err != nil {
		return records.Expenditure{}, false
	}

	return records.Expenditure{
		CommitteeID: blankToEmpty(entry.CommitteeID),
		PAC:         pac,
		Stance:      stance,
		Candidate:   candidate,
		District:    blankToEmpty(entry.District),
		Amount:      amount,
		Note:        blankToEmpty(entry.Note),
		Party:       blankToEmpty(entry.Party),
		Payee:       blankToEmpty(entry.Payee),
		Date:        date,
		Origin:      blankToEmpty(entry.Origin),
		Source:      blankToEmpty(entry.Source),
	}, true
}

// blankToEmpty collapses whitespace-only values to the empty string but
// leaves interior and edge whitespace of real values alone. The ledger
// stores field values exactly as the feed disclosed them.
func blankToEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
