package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "test", "cnpjsync")

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	e.GET("/ok", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/missing", "/ok", "/ok"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("cnpjsync", "GET", "/missing", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.statusCategory.WithLabelValues("cnpjsync", "2xx", "GET", "/ok")))
}

func TestIngestMetrics_ObserveBatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewIngestMetrics(reg, "test")

	m.ObserveBatch("companies", time.Now(), true)
	m.ObserveBatch("companies", time.Now(), false)

	count, err := testutil.GatherAndCount(reg, "test_ingest_batch_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
