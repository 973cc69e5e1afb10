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

func TestMetricsHandlerExposesJobMetrics(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Jobs().Track("inventory:reconcile").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, "supermart_jobs_total") {
		t.Fatalf("expected body to contain supermart_jobs_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "supermart_http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "supermart_http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestDomainCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveCheckout("success", 12.5)
	metrics.ObserveCheckout("insufficient_stock", 99)
	metrics.ObserveMovement("SALE", -3)
	metrics.ObserveMovement("IN", 10)
	metrics.ObserveMovement("OUT", 0)

	body := scrape(t, metrics)
	for _, want := range []string{
		`supermart_checkouts_total{outcome="success"} 1`,
		`supermart_checkouts_total{outcome="insufficient_stock"} 1`,
		`supermart_checkout_amount_total 12.5`,
		`supermart_stock_movements_total{type="OUT"} 1`,
		`supermart_stock_units_total{direction="out",type="SALE"} 3`,
		`supermart_stock_units_total{direction="in",type="IN"} 10`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics, got: %s", want, body)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCheckout("success", 1)
	m.ObserveMovement("IN", 1)
	if m.Jobs() != nil {
		t.Fatal("expected nil job metrics")
	}
}
