package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/serroba/ratelimit-go/internal/metrics"
	"github.com/serroba/ratelimit-go/internal/ratelimit"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	t.Run("counts by outcome", func(t *testing.T) {
		r := metrics.NewRecorder("memory")

		r.Observe(ratelimit.OutcomeAdmitted)
		r.Observe(ratelimit.OutcomeAdmitted)
		r.Observe(ratelimit.OutcomeRejected)

		assert.InDelta(t, 2, testutil.ToFloat64(r.Decisions().WithLabelValues(ratelimit.OutcomeAdmitted)), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(r.Decisions().WithLabelValues(ratelimit.OutcomeRejected)), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(r.Decisions().WithLabelValues(ratelimit.OutcomeSkipped)), 0)
	})

	t.Run("serves the exposition format", func(t *testing.T) {
		r := metrics.NewRecorder("redis")
		r.Observe(ratelimit.OutcomeCompensated)

		w := httptest.NewRecorder()
		r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `ratelimit_decisions_total{outcome="compensated",store="redis"} 1`)
	})

	t.Run("recorders are independent", func(t *testing.T) {
		a := metrics.NewRecorder("memory")
		b := metrics.NewRecorder("memory")

		a.Observe(ratelimit.OutcomeAdmitted)

		assert.InDelta(t, 0, testutil.ToFloat64(b.Decisions().WithLabelValues(ratelimit.OutcomeAdmitted)), 0)
	})
}
