// feedserver is a stand-in for the disclosure feed, for local development.
// It answers the independentExpend method with canned expenditures dated
// relative to startup so they land inside the retention window.
//
// Point pacwatch at it with:
//
//	PACWATCH_FEED_ENDPOINT=http://localhost:8090/api/ pacwatch run --dry-run
package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"time"
)

type entry struct {
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

func cannedEntries(now time.Time) []entry {
	day := func(offset int) string {
		return now.AddDate(0, 0, offset).Format("01/02/2006")
	}
	return []entry{
		{
			CommitteeID: "C00487470",
			PAC:         "Club for Growth",
			Stance:      "Supports",
			Candidate:   "Doe, Jane",
			District:    "CA25",
			Amount:      "5000",
			Note:        "Media Buy",
			Party:       "D",
			Payee:       "Targeted Platform AI",
			Date:        day(-1),
			Origin:      "Center for Responsive Politics",
			Source:      "http://www.fec.gov/",
		},
		{
			CommitteeID: "C00053553",
			PAC:         "America Votes",
			Stance:      "Opposes",
			Candidate:   "Smith, John",
			District:    "TX10",
			Amount:      "9000",
			Note:        "Phone Calls",
			Party:       "R",
			Payee:       "Grassroots Outreach LLC",
			Date:        day(-2),
			Origin:      "Center for Responsive Politics",
			Source:      "http://www.fec.gov/",
		},
		{
			CommitteeID: "C00571372",
			PAC:         "Senate Leadership Fund",
			Stance:      "Supports",
			Candidate:   "Brown, Pat",
			District:    "OHS1",
			Amount:      "125000",
			Note:        "TV Advertising",
			Party:       "R",
			Payee:       "Main Street Media",
			Date:        day(0),
			Origin:      "Center for Responsive Politics",
			Source:      "http://www.fec.gov/",
		},
	}
}

func handler(entries []entry) http.HandlerFunc {
	type envelope struct {
		Attributes entry `json:"@attributes"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		log.Printf("%s %s method=%s", r.Method, r.URL.Path, q.Get("method"))

		w.Header().Set("Content-Type", "application/json")

		// The real feed reports errors as 200s with a different body
		// shape, so the mock does too.
		if q.Get("method") != "independentExpend" {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": "unknown method"},
			})
			return
		}
		if q.Get("apikey") == "" {
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"message": "apikey required"},
			})
			return
		}

		envelopes := make([]envelope, len(entries))
		for i, e := range entries {
			envelopes[i] = envelope{Attributes: e}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"response": map[string]any{"indexp": envelopes},
		})
	}
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	entriesPath := flag.String("entries", "", "path to a JSON file of entries to serve instead of the canned set")
	flag.Parse()

	entries := cannedEntries(time.Now())
	if *entriesPath != "" {
		data, err := os.ReadFile(*entriesPath)
		if err != nil {
			log.Fatalf("read entries: %v", err)
		}
		entries = nil
		if err := json.Unmarshal(data, &entries); err != nil {
			log.Fatalf("parse entries: %v", err)
		}
	}

	http.HandleFunc("/", handler(entries))
	log.Printf("feedserver listening on %s with %d entries", *addr, len(entries))
	log.Fatal(http.ListenAndServe(*addr, nil))
}
