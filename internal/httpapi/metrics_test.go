package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
)

func promHandler() http.Handler { return promhttp.Handler() }

func TestMetricsUseRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/queue/{requestID}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promHandler().ServeHTTP(w, r)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/queue/abc-123", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	assert.Contains(t, body, `vramd_http_requests_total{method="GET",path="/queue/{requestID}",status="418"}`)
	assert.False(t, strings.Contains(body, "abc-123"), "raw ids must not become label values")
}

func TestIncrementBackpressure(t *testing.T) {
	IncrementBackpressure("")
	rr := httptest.NewRecorder()
	promHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `vramd_http_backpressure_total{reason="unspecified"}`)
}
