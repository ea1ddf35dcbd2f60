// Package report turns record sets into reportable aggregates and renders
// each aggregate as a length-bounded summary for the notification channel.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"pacwatch/internal/records"
)

// Key identifies one reportable grouping. Note is populated only by
// AggregateNew: distinct purposes stay distinct when announcing, but the
// ledger-wide totals ignore purpose.
type Key struct {
	PAC       string
	Stance    string
	Candidate string
	District  string
	Party     string
	Note      string
}

// Aggregate is a Key plus the summed amount of its records. Aggregates are
// computed fresh each run and never persisted.
type Aggregate struct {
	Key
	Amount decimal.Decimal
}

// AggregateLedger groups the ledger by (PAC, stance, candidate, district,
// party) and sums amounts. Output is sorted lexicographically by key, which
// both makes it deterministic and fixes which row a Cumulative lookup finds
// first when a candidate appears under several district or party spellings.
func AggregateLedger(ledger []records.Expenditure) []Aggregate {
	sums := make(map[Key]decimal.Decimal, len(ledger))
	for _, e := range ledger {
		k := Key{PAC: e.PAC, Stance: e.Stance, Candidate: e.Candidate, District: e.District, Party: e.Party}
		sums[k] = sums[k].Add(e.Amount)
	}

	out := make([]Aggregate, 0, len(sums))
	for k, amount := range sums {
		out = append(out, Aggregate{Key: k, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.less(out[j].Key) })
	return out
}

// AggregateNew groups freshly captured records with the purpose note as part
// of the key. Output order follows first appearance in the input, so callers
// feeding records sorted by (date, amount) get announcements in that order.
func AggregateNew(fresh []records.Expenditure) []Aggregate {
	index := make(map[Key]int, len(fresh))
	out := make([]Aggregate, 0, len(fresh))
	for _, e := range fresh {
		k := Key{PAC: e.PAC, Stance: e.Stance, Candidate: e.Candidate, District: e.District, Party: e.Party, Note: e.Note}
		if i, ok := index[k]; ok {
			out[i].Amount = out[i].Amount.Add(e.Amount)
			continue
		}
		index[k] = len(out)
		out = append(out, Aggregate{Key: k, Amount: e.Amount})
	}
	return out
}

// Cumulative returns the ledger-wide total for the aggregate's contributor,
// stance, and candidate: the first ledger aggregate matching those three
// fields. District and party do not participate because the ledger may carry
// the same pairing under more than one spelling of either.
func Cumulative(ledger []Aggregate, key Key) (decimal.Decimal, bool) {
	for _, a := range ledger {
		if a.PAC == key.PAC && a.Stance == key.Stance && a.Candidate == key.Candidate {
			return a.Amount, true
		}
	}
	return decimal.Decimal{}, false
}

func (k Key) less(o Key) bool {
	if k.PAC != o.PAC {
		return k.PAC < o.PAC
	}
	if k.Stance != o.Stance {
		return k.Stance < o.Stance
	}
	if k.Candidate != o.Candidate {
		return k.Candidate < o.Candidate
	}
	if k.District != o.District {
		return k.District < o.District
	}
	return k.Party < o.Party
}
