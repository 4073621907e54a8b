package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersRecord(t *testing.T) {
	m := New()

	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()
	m.Inbound(InboundMalformed)
	m.Deliveries(DeliveryDropped, 2)
	m.Deliveries(DeliverySent, 0)
	m.MarkerMutation("add", "ok")
	m.Login("invalid")

	assert.InDelta(t, 1, testutil.ToFloat64(m.liveConnections), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.inbound.WithLabelValues(InboundMalformed)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.deliveries.WithLabelValues(DeliveryDropped)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.markerMutations.WithLabelValues("add", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.logins.WithLabelValues("invalid")), 0)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ConnectionOpened()
		m.ConnectionClosed()
		m.Inbound(InboundRelayed)
		m.Deliveries(DeliverySent, 1)
		m.MarkerMutation("remove", "ok")
		m.Login("ok")
		m.ObserveHTTP(http.MethodGet, http.StatusOK, time.Millisecond)
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ConnectionOpened()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tacmap_realtime_connections 1")
}
