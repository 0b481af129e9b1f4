package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_LabelsByPattern(t *testing.T) {
	m := New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{code}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://example.com", http.StatusFound)
	})
	mux.HandleFunc("POST /api/links", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	h := m.Middleware(mux)

	for _, req := range []*http.Request{
		httptest.NewRequest("GET", "/abc123", nil),
		httptest.NewRequest("GET", "/xyz789", nil),
		httptest.NewRequest("POST", "/api/links", nil),
		httptest.NewRequest("GET", "/a/b/c", nil),
	} {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	tests := []struct {
		method, route, status string
		want                  float64
	}{
		{"GET", "GET /{code}", "302", 2},
		{"POST", "POST /api/links", "201", 1},
		{"GET", unmatchedRoute, "404", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.requests.WithLabelValues(tt.method, tt.route, tt.status))
		if got != tt.want {
			t.Errorf("http_requests_total{%s,%s,%s} = %v, want %v", tt.method, tt.route, tt.status, got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(m.duration); n != 3 {
		t.Errorf("duration series = %d, want 3", n)
	}
}

func TestDomainCounters(t *testing.T) {
	m := New()

	m.LinkCreated()
	m.LinkCreated()
	m.Redirect(OutcomeFound)
	m.Redirect(OutcomeNotFound)
	m.Redirect(OutcomeFound)

	if got := testutil.ToFloat64(m.linksCreated); got != 2 {
		t.Errorf("links created = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.redirects.WithLabelValues(OutcomeFound)); got != 2 {
		t.Errorf("redirects found = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.redirects.WithLabelValues(OutcomeNotFound)); got != 1 {
		t.Errorf("redirects not_found = %v, want 1", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.LinkCreated()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	for _, want := range []string{"tinylink_links_created_total 1", "go_goroutines"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestTwoInstancesDoNotCollide(t *testing.T) {
	a, b := New(), New()
	a.LinkCreated()

	if got := testutil.ToFloat64(b.linksCreated); got != 0 {
		t.Errorf("second registry links created = %v, want 0", got)
	}
}
