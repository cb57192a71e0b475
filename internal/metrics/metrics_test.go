package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RecordDecision("read", "OK")
	m.RecordDecision("read", "OK")
	m.RecordDecision("write", "AFTER_HOURS_READONLY")
	m.RecordGrant("Access granted")
	m.RecordOrder()
	m.RecordTransition("Approved", "ok")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("read", "OK")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.DecisionsTotal.WithLabelValues("write", "AFTER_HOURS_READONLY")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.GrantsTotal.WithLabelValues("Access granted")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OrdersTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransitionsTotal.WithLabelValues("Approved", "ok")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.RecordDecision("read", "OK")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "gatekeeper_decisions_total")
}
