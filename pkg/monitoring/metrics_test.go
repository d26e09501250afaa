package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCollectorsAreIsolated(t *testing.T) {
	// Two collectors with the same service name must not collide.
	a := NewMetricsCollector("lookout-test", "v1", "abc")
	b := NewMetricsCollector("lookout-test", "v1", "abc")
	a.CreatePipelineMetrics()
	b.CreatePipelineMetrics()
}

func TestMetricsMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mc := NewMetricsCollector("lookout-test", "v1", "abc")
	pm := mc.CreatePipelineMetrics()
	pm.Builds.WithLabelValues("summary", "fallback", "timeout").Inc()

	r := gin.New()
	r.Use(mc.MetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/metrics", mc.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

	if got := testutil.ToFloat64(mc.httpRequestsTotal.WithLabelValues("GET", "/ping", "2xx")); got != 1 {
		t.Fatalf("expected one recorded request, got %v", got)
	}
	if got := testutil.ToFloat64(pm.Builds.WithLabelValues("summary", "fallback", "timeout")); got != 1 {
		t.Fatalf("expected one fallback build, got %v", got)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, "lookout_test_summary_builds_total") {
		t.Fatalf("metrics output missing pipeline counter:\n%s", body)
	}
	if !strings.Contains(body, `lookout_test_service_info{commit="abc",version="v1"} 1`) {
		t.Fatalf("metrics output missing service info:\n%s", body)
	}
}

func TestMetricsMiddlewareSkipsScrapesAndGroupsUnmatched(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mc := NewMetricsCollector("lookout-test", "v1", "abc")

	r := gin.New()
	r.Use(mc.MetricsMiddleware())
	r.GET("/metrics", mc.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/2", nil))

	if got := testutil.ToFloat64(mc.httpRequestsTotal.WithLabelValues("GET", "/metrics", "2xx")); got != 0 {
		t.Fatalf("scrapes must not be recorded, got %v", got)
	}
	if got := testutil.ToFloat64(mc.httpRequestsTotal.WithLabelValues("GET", "unmatched", "4xx")); got != 2 {
		t.Fatalf("expected two unmatched requests, got %v", got)
	}
	if got := testutil.ToFloat64(mc.inFlight); got != 0 {
		t.Fatalf("in-flight gauge should return to zero, got %v", got)
	}
}
