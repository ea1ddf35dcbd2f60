package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// csvHeader is the ledger column order. It matches what the bot has always
// written, so ledgers produced by earlier versions load unchanged.
var csvHeader = []string{
	"cmteid", "pacshort", "suppopp", "candname", "district",
	"amount", "note", "party", "payee", "date", "origin", "source",
	"timestamp",
}

// timestampLayouts are the accepted SeenAt forms. Earlier versions of the
// bot wrote bare microsecond timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// ReadCSV decodes a ledger. The header row must match csvHeader exactly;
// a mismatch is an error because it means the object is not a ledger at
// all. Individual rows that fail to decode (wrong field count, bad amount,
// bad date, bad timestamp) are dropped, so one corrupt row never costs the
// rest of the ledger. Completely empty input decodes as an empty ledger.
func ReadCSV(r io.Reader) ([]Expenditure, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger header: %w", err)
	}
	if !headerMatches(header) {
		return nil, fmt.Errorf("ledger header mismatch: %q", strings.Join(header, ","))
	}

	var ledger []Expenditure
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return ledger, nil
		}
		if err != nil {
			return ledger, fmt.Errorf("read ledger row: %w", err)
		}
		e, ok := decodeRow(row)
		if !ok {
			continue
		}
		ledger = append(ledger, e)
	}
}

// WriteCSV encodes the ledger, header first, one row per record.
func WriteCSV(w io.Writer, ledger []Expenditure) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, e := range ledger {
		if err := cw.Write(encodeRow(e)); err != nil {
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	return nil
}

func headerMatches(header []string) bool {
	if len(header) != len(csvHeader) {
		return false
	}
	for i, name := range csvHeader {
		if strings.TrimSpace(header[i]) != name {
			return false
		}
	}
	return true
}

func decodeRow(row []string) (Expenditure, bool) {
	if len(row) != len(csvHeader) {
		return Expenditure{}, false
	}
	amount, err := ParseAmount(row[5])
	if err != nil {
		return Expenditure{}, false
	}
	date, err := ParseDate(row[9])
	if err != nil {
		return Expenditure{}, false
	}
	seenAt, err := parseTimestamp(row[12])
	if err != nil {
		return Expenditure{}, false
	}
	return Expenditure{
		CommitteeID: row[0],
		PAC:         row[1],
		Stance:      row[2],
		Candidate:   row[3],
		District:    row[4],
		Amount:      amount,
		Note:        row[6],
		Party:       row[7],
		Payee:       row[8],
		Date:        date,
		Origin:      row[10],
		Source:      row[11],
		SeenAt:      seenAt,
	}, true
}

func encodeRow(e Expenditure) []string {
	seenAt := ""
	if !e.SeenAt.IsZero() {
		seenAt = e.SeenAt.Format(time.RFC3339Nano)
	}
	return []string{
		e.CommitteeID, e.PAC, e.Stance, e.Candidate, e.District,
		e.Amount.String(), e.Note, e.Party, e.Payee,
		e.Date.Format(DateLayout), e.Origin, e.Source,
		seenAt,
	}
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
