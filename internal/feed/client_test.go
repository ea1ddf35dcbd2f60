package feed_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"pacwatch/internal/feed"
)

const samplePayload = `{
  "response": {
    "indexp": [
      {"@attributes": {
        "cmteid": "C00487470", "pacshort": "Club for Growth", "suppopp": "Supports",
        "candname": "Doe, Jane", "district": "CA25", "amount": "5000",
        "note": "media buy", "party": "D", "payee": "Acme Media LLC",
        "date": "2024-03-01", "origin": "FEC", "source": "24-hour report"
      }},
      {"@attributes": {
        "cmteid": "C00573261", "pacshort": "Emily's List", "suppopp": "Opposes",
        "candname": "Roe, Rick", "district": "TXS1", "amount": "2500.50",
        "note": "", "party": "R", "payee": "Big Sign Co",
        "date": "2024-03-02", "origin": "FEC", "source": "48-hour report"
      }}
    ]
  }
}`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ClientSuite struct {
	suite.Suite
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) newClient(endpoint string, attempts int) *feed.Client {
	return feed.NewClient(feed.Config{
		Endpoint: endpoint,
		APIKey:   "test-key",
		Attempts: attempts,
		Delay:    time.Millisecond,
	}, feed.WithLogger(testLogger()))
}

func (s *ClientSuite) TestFetch() {
	s.Run("parses entries and sends the expected request", func() {
		var gotQuery, gotUA, gotAccept string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			gotUA = r.Header.Get("User-Agent")
			gotAccept = r.Header.Get("Accept")
			io.WriteString(w, samplePayload)
		}))
		defer srv.Close()

		entries, err := s.newClient(srv.URL, 1).Fetch(context.Background())
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal("Club for Growth", entries[0].PAC)
		s.Equal("5000", entries[0].Amount)
		s.Equal("Roe, Rick", entries[1].Candidate)

		s.Contains(gotQuery, "method=independentExpend")
		s.Contains(gotQuery, "apikey=test-key")
		s.Contains(gotQuery, "output=json")
		s.Contains(gotUA, "Mozilla/5.0")
		s.Contains(gotAccept, "text/html")
	})

	s.Run("retries transient failures until one succeeds", func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			io.WriteString(w, samplePayload)
		}))
		defer srv.Close()

		entries, err := s.newClient(srv.URL, 5).Fetch(context.Background())
		s.Require().NoError(err)
		s.Len(entries, 2)
		s.EqualValues(3, calls.Load())
	})

	s.Run("returns ErrUnavailable after exhausting the budget", func() {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := s.newClient(srv.URL, 3).Fetch(context.Background())
		s.ErrorIs(err, feed.ErrUnavailable)
		s.EqualValues(3, calls.Load())
	})

	s.Run("non-json body counts as a failed attempt", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "<html>rate limited</html>")
		}))
		defer srv.Close()

		_, err := s.newClient(srv.URL, 2).Fetch(context.Background())
		s.ErrorIs(err, feed.ErrUnavailable)
	})

	s.Run("payload without the expenditure array counts as failed", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"response": {}}`)
		}))
		defer srv.Close()

		_, err := s.newClient(srv.URL, 2).Fetch(context.Background())
		s.ErrorIs(err, feed.ErrUnavailable)
	})

	s.Run("empty expenditure array is a quiet day, not an error", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"response": {"indexp": []}}`)
		}))
		defer srv.Close()

		entries, err := s.newClient(srv.URL, 1).Fetch(context.Background())
		s.NoError(err)
		s.Empty(entries)
	})

	s.Run("cancelled context stops the retry loop", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := feed.NewClient(feed.Config{
			Endpoint: srv.URL,
			APIKey:   "test-key",
			Attempts: 10,
			Delay:    10 * time.Second,
		}, feed.WithLogger(testLogger()))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := client.Fetch(ctx)
		s.Error(err)
		s.ErrorIs(err, context.DeadlineExceeded)
		s.Less(time.Since(start), 5*time.Second)
	})
}
