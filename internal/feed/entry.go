package feed

// Entry is one raw attribute bag as the feed reports it, all fields
// strings. Field names mirror the feed's own attribute names.
type Entry struct {
	CommitteeID string `json:"cmteid"`
	PAC         string `json:"pacshort"`
	Stance      string `json:"suppopp"`
	Candidate   string `json:"candname"`
	District    string `json:"district"`
	Amount      string `json:"amount"`
	Note        string `json:"note"`
	Party       string `json:"party"`
	Payee       string `json:"payee"`
	Date        string `json:"date"`
	Origin      string `json:"origin"`
	Source      string `json:"source"`
}
