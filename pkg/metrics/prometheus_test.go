package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPrometheus_ExposesRequestMetricsOnSameEngine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	p := NewPrometheus(NewPrometheusOptions{Subsystem: "letterdesk_test", Logger: zap.NewNop().Sugar()})
	p.Use(r)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "letterdesk_test_req_total")
	assert.Contains(t, w.Body.String(), `url="/ping"`)
}

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/a", nil)
	req.Header.Set("X", "yz")
	req.ContentLength = 10
	// path(2) + method(4) + proto(8) + header(1+2) + host(11) + body(10)
	assert.Equal(t, 2+4+8+3+len(req.Host)+10, computeApproximateRequestSize(req))
}

func TestNewMetric_UnknownTypeIsNil(t *testing.T) {
	assert.Nil(t, NewMetric(&Metric{Name: "x", Type: "gauge"}, "letterdesk_test"))
}

func TestBusinessMetricsAreRegistered(t *testing.T) {
	LettersFailed.WithLabelValues("drafting").Inc()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "letterdesk_letters_failed_total" {
			found = true
		}
	}
	assert.True(t, found)
}
