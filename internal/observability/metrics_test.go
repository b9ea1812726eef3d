package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsAreIsolatedPerInstance(t *testing.T) {
	a := NewMetrics("gadgetdesk")
	b := NewMetrics("gadgetdesk")

	a.Intents.WithLabelValues("greeting").Inc()
	a.Intents.WithLabelValues("greeting").Inc()
	b.Intents.WithLabelValues("greeting").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(a.Intents.WithLabelValues("greeting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Intents.WithLabelValues("greeting")))
}

func TestMetricsHandlerExposesCounters(t *testing.T) {
	m := NewMetrics("gadgetdesk")
	m.Turns.WithLabelValues("ok").Inc()
	m.ObserveTurnLatency(3 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `gadgetdesk_turns_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "gadgetdesk_turn_latency_ms_bucket")
}

func TestObserveTurnStage(t *testing.T) {
	m := NewMetrics("gadgetdesk")
	m.ObserveTurnStage(StageCompose, 1500*time.Microsecond)

	snap := m.SnapshotTurnStages()
	require.Len(t, snap.Stages, 1)
	assert.Equal(t, StageCompose, snap.Stages[0].Stage)
	assert.Equal(t, 1.5, snap.Stages[0].LastMS)
}
