package wazuh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linnemanlabs/argus/internal/alert"
)

func testOptions(url string) Options {
	return Options{
		URL:           url,
		IndexPattern:  "wazuh-alerts-*",
		SeverityField: "rule.level",
		MinSeverity:   7,
		SortField:     "timestamp",
		Size:          5,
	}
}

func newTestIndexer(t *testing.T, handler http.HandlerFunc) *Indexer {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewIndexer(testOptions(srv.URL))
}

func TestIndexer_Success(t *testing.T) {
	t.Parallel()

	ix := newTestIndexer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/wazuh-alerts-*/_search" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/wazuh-alerts-*/_search")
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}

		var q map[string]any
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Fatalf("decode query: %v", err)
		}
		gte := q["query"].(map[string]any)["range"].(map[string]any)["rule.level"].(map[string]any)["gte"]
		if gte != float64(7) {
			t.Errorf("gte = %v, want 7", gte)
		}
		if q["size"] != float64(5) {
			t.Errorf("size = %v, want 5", q["size"])
		}
		order := q["sort"].([]any)[0].(map[string]any)["timestamp"].(map[string]any)["order"]
		if order != "desc" {
			t.Errorf("sort order = %v, want desc", order)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"hits":{"total":{"value":2},"hits":[
			{"_id":"abc","_index":"wazuh-alerts-4.x-2026.10.18","_source":{"rule":{"level":12,"description":"brute force"}}},
			{"_id":"def","_index":"wazuh-alerts-4.x-2026.10.18","_source":{"rule":{"level":7}}}
		]}}`)
	})

	alerts, err := ix.Alerts(context.Background())
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("len(alerts) = %d, want 2", len(alerts))
	}
	if alerts[0].ID != "abc" || alerts[1].ID != "def" {
		t.Errorf("ids = %q, %q; want abc, def", alerts[0].ID, alerts[1].ID)
	}
	if alerts[0].Source != SourceIndexer {
		t.Errorf("source = %q, want %q", alerts[0].Source, SourceIndexer)
	}
	if got := alerts[0].RuleDescription(); got != "brute force" {
		t.Errorf("description = %q, want %q", got, "brute force")
	}
}

func TestIndexer_BasicAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != "admin" || p != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = fmt.Fprint(w, `{"hits":{"hits":[]}}`)
	}))
	t.Cleanup(srv.Close)

	opts := testOptions(srv.URL)
	opts.Username = "admin"
	opts.Password = "secret"

	alerts, err := NewIndexer(opts).Alerts(context.Background())
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Errorf("len(alerts) = %d, want 0", len(alerts))
	}
}

func TestIndexer_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, alert.ErrUpstreamUnavailable},
		{"unauthorized", http.StatusUnauthorized, ``, alert.ErrUpstreamUnavailable},
		{"index missing", http.StatusNotFound, `{"error":{"type":"index_not_found_exception"}}`, alert.ErrUpstreamUnavailable},
		{"malformed body", http.StatusOK, `<html>`, alert.ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ix := newTestIndexer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})

			_, err := ix.Alerts(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIndexer_Unreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewIndexer(testOptions(url)).Alerts(context.Background())
	if !errors.Is(err, alert.ErrUpstreamUnavailable) {
		t.Fatalf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestIndexer_SkipsHitsWithoutSource(t *testing.T) {
	t.Parallel()

	ix := newTestIndexer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"hits":{"hits":[{"_id":"x"},{"_id":"y","_source":{"rule":{"level":9}}}]}}`)
	})

	alerts, err := ix.Alerts(context.Background())
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "y" {
		t.Fatalf("alerts = %+v, want single alert y", alerts)
	}
}
