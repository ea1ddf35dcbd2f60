package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"pacwatch/internal/notify"
)

type StatusClientSuite struct {
	suite.Suite
}

func TestStatusClientSuite(t *testing.T) {
	suite.Run(t, new(StatusClientSuite))
}

func (s *StatusClientSuite) TestPost() {
	s.Run("sends bearer token and JSON body, returns the created ID", func() {
		var gotAuth, gotContentType string
		var gotBody map[string]string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotContentType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &gotBody)
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"data": {"id": "175002"}}`)
		}))
		defer srv.Close()

		client := notify.NewStatusClient(notify.StatusConfig{Endpoint: srv.URL, Token: "secret-token"})
		id, err := client.Post(context.Background(), "Club for Growth spends $5,000")
		s.Require().NoError(err)
		s.Equal("175002", id)
		s.Equal("Bearer secret-token", gotAuth)
		s.Equal("application/json", gotContentType)
		s.Equal("Club for Growth spends $5,000", gotBody["text"])
	})

	s.Run("non-2xx is an error carrying the response body", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			io.WriteString(w, `{"title": "Too Many Requests"}`)
		}))
		defer srv.Close()

		client := notify.NewStatusClient(notify.StatusConfig{Endpoint: srv.URL, Token: "t"})
		_, err := client.Post(context.Background(), "text")
		s.Require().Error(err)
		s.Contains(err.Error(), "429")
		s.Contains(err.Error(), "Too Many Requests")
	})

	s.Run("2xx with an unreadable ID still counts as delivered", func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `not json at all`)
		}))
		defer srv.Close()

		client := notify.NewStatusClient(notify.StatusConfig{Endpoint: srv.URL, Token: "t"})
		id, err := client.Post(context.Background(), "text")
		s.Require().NoError(err)
		s.Empty(id)
	})

	s.Run("unreachable endpoint is an error", func() {
		client := notify.NewStatusClient(notify.StatusConfig{Endpoint: "http://127.0.0.1:1", Token: "t"})
		_, err := client.Post(context.Background(), "text")
		s.Error(err)
	})
}
