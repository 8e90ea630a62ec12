package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"inferd/internal/manager"
)

// statsService adds the Stats read side on top of mockService so the
// metrics endpoint exposes live gauges.
type statsService struct {
	mockService
	loaded    int
	evictions uint64
	loads     uint64
	fetches   uint64
}

func (s *statsService) LoadedCount() int       { return s.loaded }
func (s *statsService) EvictionsTotal() uint64 { return s.evictions }
func (s *statsService) LoadsTotal() uint64     { return s.loads }
func (s *statsService) FetchesTotal() uint64   { return s.fetches }

func scrape(t *testing.T, h http.Handler, path string) []byte {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("%s status=%d", path, w.Code)
	}
	return w.Body.Bytes()
}

// TestMetricsMiddleware_EmitsRequestCounters verifies that wrapping a handler
// with MetricsMiddleware results in request metrics being exposed via the
// Prometheus /metrics handler.
func TestMetricsMiddleware_EmitsRequestCounters(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	MetricsMiddleware(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	body := scrape(t, promhttp.Handler(), "/metrics")
	if !bytes.Contains(body, []byte("inferd_http_requests_total")) {
		previewLen := len(body)
		if previewLen > 200 {
			previewLen = 200
		}
		t.Fatalf("expected inferd_http_requests_total in metrics; got: %q", string(body[:previewLen]))
	}
}

func TestEventsCollectorCountsEvents(t *testing.T) {
	NewEventsCollector().Publish(manager.Event{Name: "load_ready", ModelID: "m"})

	body := scrape(t, promhttp.Handler(), "/metrics")
	if !bytes.Contains(body, []byte(`inferd_model_events_total{event="load_ready"}`)) {
		t.Fatalf("load_ready event not counted")
	}
}

func TestMetricsEndpointIncludesStats(t *testing.T) {
	svc := &statsService{loaded: 2, evictions: 1, loads: 4, fetches: 3}
	svc.usage = 12.5
	r := NewMux(svc)

	body := scrape(t, r, "/metrics")
	for _, name := range []string{
		"inferd_vram_usage_percent",
		"inferd_models_loaded",
		"inferd_models_evictions_total",
		"inferd_models_loads_total",
		"inferd_models_downloads_total",
	} {
		if !bytes.Contains(body, []byte(name)) {
			t.Fatalf("metric %s missing from /metrics", name)
		}
	}
	if !bytes.Contains(body, []byte("inferd_vram_usage_percent 12.5")) {
		t.Fatalf("usage gauge not bound to the service")
	}
}

func TestMetricsEndpointWithoutStats(t *testing.T) {
	// A service without the Stats side still serves the default registry.
	r := NewMux(&mockService{})
	body := scrape(t, r, "/metrics")
	if !bytes.Contains(body, []byte("inferd_http_requests_total")) {
		t.Fatalf("default registry metrics missing")
	}
}

func TestRoutePatternOrPath(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Get("/v1/execute/{task_type}", func(w http.ResponseWriter, r *http.Request) {
		got = routePatternOrPath(r)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/execute/text", nil))
	if got != "/v1/execute/{task_type}" {
		t.Fatalf("pattern=%q", got)
	}

	plain := httptest.NewRequest(http.MethodGet, "/plain", nil)
	if p := routePatternOrPath(plain); p != "/plain" {
		t.Fatalf("fallback=%q", p)
	}
}
