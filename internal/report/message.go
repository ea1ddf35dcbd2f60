package report

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message is one rendered summary. Truncated marks the last-resort hard cut
// at the character limit, which should not happen for real filings and is
// worth a loud log line when it does.
type Message struct {
	Text      string
	Truncated bool
}

// domainSuffixes get spelled out so the destination channel does not
// auto-link contributor names like "MoveOn.org PAC".
var domainSuffixes = []string{".com", ".org", ".gov", ".net", ".edu"}

// Renderer composes summaries of the form
//
//	<PAC> spends $<amount> on <purpose> <stance> <first> <last> (<party><district>).
//
// with an optional second sentence reporting the cumulative spend over the
// retention window.
type Renderer struct {
	windowDays int
	charLimit  int
	printer    *message.Printer
}

// NewRenderer builds a renderer. Zero windowDays or charLimit fall back to
// 30 days and 280 characters.
func NewRenderer(windowDays, charLimit int) *Renderer {
	if windowDays <= 0 {
		windowDays = 30
	}
	if charLimit <= 0 {
		charLimit = 280
	}
	return &Renderer{
		windowDays: windowDays,
		charLimit:  charLimit,
		printer:    message.NewPrinter(language.English),
	}
}

// Compose renders one aggregate. A nil cumulative means no prior spend was
// looked up; the cumulative sentence appears only when the cumulative total
// strictly exceeds the aggregate amount, so a first-ever contribution is
// never echoed back as its own running total.
//
// Compose fails on rows the sentence format cannot express: a candidate
// name without the "last, first" separator, or a district code too short to
// carry a seat flag. Callers log and skip those rows; they never abort a
// batch.
func (r *Renderer) Compose(agg Aggregate, cumulative *decimal.Decimal) (Message, error) {
	pac := escapeDomains(agg.PAC)
	amount := r.printer.Sprintf("%d", agg.Amount.IntPart())
	purpose := strings.ToLower(agg.Note)
	stance := trimStanceMarker(agg.Stance)

	nameParts := strings.Split(agg.Candidate, ", ")
	if len(nameParts) < 2 {
		return Message{}, fmt.Errorf("candidate %q has no last/first separator", agg.Candidate)
	}
	last, first := nameParts[0], nameParts[1]

	district, err := normalizeDistrict(agg.District)
	if err != nil {
		return Message{}, err
	}

	body := fmt.Sprintf("%s spends $%s on %s %s %s %s (%s-%s).",
		pac, amount, purpose, stance, first, last, agg.Party, district)

	withCumulative := cumulative != nil && cumulative.GreaterThan(agg.Amount)
	var clause string
	if withCumulative {
		clause = fmt.Sprintf("\n\nThey have now spent $%s %s %s in the past %d days.",
			r.printer.Sprintf("%d", cumulative.IntPart()), stance, last, r.windowDays)
		body += clause
	}

	// Too long: drop the purpose clause and try again.
	if utf8.RuneCountInString(body) > r.charLimit {
		body = fmt.Sprintf("%s spends $%s %s %s %s (%s-%s).",
			pac, amount, stance, first, last, agg.Party, district)
		if withCumulative {
			body += clause
		}
	}

	if utf8.RuneCountInString(body) > r.charLimit {
		runes := []rune(body)
		return Message{Text: string(runes[:r.charLimit]), Truncated: true}, nil
	}
	return Message{Text: body}, nil
}

func escapeDomains(s string) string {
	for _, suffix := range domainSuffixes {
		if strings.Contains(s, suffix) {
			s = strings.ReplaceAll(s, suffix, " dot "+suffix[1:])
		}
	}
	return s
}

// trimStanceMarker drops the trailing plural marker the feed puts on stance
// words ("Supports", "Opposes") and lower-cases the rest.
func trimStanceMarker(s string) string {
	if s == "" {
		return ""
	}
	runes := []rune(s)
	return strings.ToLower(string(runes[:len(runes)-1]))
}

// normalizeDistrict truncates Senate-style codes to the bare state: the
// feed flags Senate seats with an S in the third position ("CAS1"), where
// House codes carry the district number ("CA25").
func normalizeDistrict(district string) (string, error) {
	runes := []rune(district)
	if len(runes) < 3 {
		return "", fmt.Errorf("district %q too short", district)
	}
	if runes[2] == 'S' {
		return string(runes[:2]), nil
	}
	return district, nil
}
