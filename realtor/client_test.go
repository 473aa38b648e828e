package realtor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vantera/config"
)

func newApifyServer(t *testing.T, statuses []string) (*httptest.Server, *int) {
	t.Helper()
	dataset := loadFixture(t, "dataset.json")
	polls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token on %s", r.URL.Path)
		}

		switch {
		case r.Method == "POST" && r.URL.Path == "/acts/epctex~realtor-scraper/runs":
			var input map[string]any
			json.NewDecoder(r.Body).Decode(&input)
			if input["search"] != "Miami, FL" {
				t.Errorf("unexpected actor input %v", input)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"data":{"id":"run-1"}}`))
		case r.URL.Path == "/actor-runs/run-1":
			status := statuses[min(polls, len(statuses)-1)]
			polls++
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"status": status, "defaultDatasetId": "ds-1"},
			})
		case r.URL.Path == "/datasets/ds-1/items":
			if r.URL.Query().Get("limit") != "10" {
				t.Errorf("expected limit=10, got %s", r.URL.RawQuery)
			}
			w.Write(dataset)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return srv, &polls
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.ApifyConfig{
		BaseURL:   srv.URL,
		Token:     "test-token",
		PollDelay: time.Millisecond,
	}, srv.Client())
}

func TestSearch(t *testing.T) {
	srv, polls := newApifyServer(t, []string{"READY", "RUNNING", "SUCCEEDED"})
	defer srv.Close()

	listings, err := newTestClient(srv).Search(context.Background(), "Miami, FL", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if *polls != 3 {
		t.Errorf("expected 3 status polls, got %d", *polls)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 parsed listings (one rejected), got %d", len(listings))
	}
}

func TestSearch_RunFailed(t *testing.T) {
	srv, _ := newApifyServer(t, []string{"RUNNING", "ABORTED"})
	defer srv.Close()

	_, err := newTestClient(srv).Search(context.Background(), "Miami, FL", 10)
	if err == nil || !strings.Contains(err.Error(), "ABORTED") {
		t.Fatalf("expected aborted run error, got %v", err)
	}
}

func TestSearch_ContextCancelled(t *testing.T) {
	srv, _ := newApifyServer(t, []string{"RUNNING"})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv).Search(ctx, "Miami, FL", 10)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSearch_MissingToken(t *testing.T) {
	c := NewClient(config.ApifyConfig{}, nil)
	_, err := c.Search(context.Background(), "Miami, FL", 10)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Key != "APIFY_TOKEN" {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
