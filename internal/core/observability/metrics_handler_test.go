package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/items", 200, 0.001)
	ObserveStoreOp("zadd", nil, 0.0001)
	ObserveStoreOp("mget", errors.New("boom"), 0.0001)
	ObserveQuery(3, 10)
	AddOrphanEntries(2)
	IncOrphanWrite()
	IncGeocodeCacheHit()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"app_build_info",
		`http_requests_total{method="GET",route="/items",status="200"}`,
		`store_op_total{op="mget",result="error"}`,
		"query_scan_ranges_bucket",
		"orphan_entries_total",
		"orphan_writes_total",
		`geocode_cache_results_total{outcome="hit"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics payload missing %q; got:\n%s", want, body)
		}
	}
}
