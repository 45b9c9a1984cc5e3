package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsRecordAllocationOutcomes(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveAllocation("allocated", 5)
	metrics.ObserveAllocation("allocated", 2)
	metrics.ObserveAllocation("insufficient", 100)

	body := scrape(t, metrics)
	if !strings.Contains(body, `weavetrack_lot_allocations_total{outcome="allocated"} 2`) {
		t.Fatalf("expected allocated outcomes, got: %s", body)
	}
	if !strings.Contains(body, `weavetrack_lot_allocations_total{outcome="insufficient"} 1`) {
		t.Fatalf("expected insufficient outcome, got: %s", body)
	}
	if !strings.Contains(body, "weavetrack_allocated_sets_total 7") {
		t.Fatalf("rejected sets must not be counted, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/lots/{id}")

	req := httptest.NewRequest(http.MethodGet, "/lots/1", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `weavetrack_http_requests_total{code="418",route="/lots/{id}"} 1`) {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, `weavetrack_http_request_duration_seconds_bucket{route="/lots/{id}"`) {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveAllocation("allocated", 1)
	metrics.SetReportCacheVersion(3)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics, got %d", rr.Code)
	}
}
