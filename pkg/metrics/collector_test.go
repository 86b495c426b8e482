package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cyberpulse/pkg/engine"
	"github.com/user/cyberpulse/pkg/meter"
)

func sampleOutputs() []engine.Output {
	return []engine.Output{
		{PairedItem: 0, Result: &engine.Result{Status: engine.StatusPartial, Score: 71, Confidence: 70}},
		{PairedItem: 1, Input: engine.Item{"control_text": 1}, Error: "bad"},
		{PairedItem: 2, Result: &engine.Result{Status: engine.StatusPartial, Score: 62, Confidence: 45}},
		{PairedItem: 3, Result: &engine.Result{Status: engine.StatusNonCompliant, Score: 5, Confidence: 20}},
	}
}

func TestObserveOutputs(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveOutputs(sampleOutputs())

	assert.Equal(t, 2.0, testutil.ToFloat64(c.evaluations.WithLabelValues("Partial")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("Non-Compliant")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.itemFailures))
	assert.Equal(t, 1, testutil.CollectAndCount(c.score))

	c.ObserveItemFailure()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.itemFailures))
}

func TestObserveUpstreamOutcomes(t *testing.T) {
	c := NewCollector(nil)

	c.ObserveUpstream(meter.OpGate, nil)
	c.ObserveUpstream(meter.OpGate, &meter.OperationError{Err: &meter.APIError{StatusCode: 429}})
	c.ObserveUpstream(meter.OpGate, &meter.APIError{StatusCode: 402})
	c.ObserveUpstream(meter.OpCrosswalk, errors.New("dial tcp: refused"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues(meter.OpGate, OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues(meter.OpGate, OutcomeRateLimited)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues(meter.OpGate, OutcomeDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues(meter.OpCrosswalk, OutcomeError)))
}

func TestObserveReload(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveReload(nil)
	c.ObserveReload(errors.New("bad yaml"))
	c.ObserveReload(nil)

	expected := `
# HELP cyberpulse_crosswalk_reloads_total Crosswalk file reloads by outcome
# TYPE cyberpulse_crosswalk_reloads_total counter
cyberpulse_crosswalk_reloads_total{outcome="error"} 1
cyberpulse_crosswalk_reloads_total{outcome="success"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c.crosswalkLoads, strings.NewReader(expected)))
}

func TestHandler(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveOutputs(sampleOutputs())
	c.ObserveBatch(120 * time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cyberpulse_evaluations_total{status="Partial"} 2`)
	assert.Contains(t, rec.Body.String(), "cyberpulse_batch_duration_seconds_count 1")
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveOutputs(sampleOutputs())

	path := filepath.Join(t.TempDir(), "cyberpulse.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cyberpulse_item_failures_total 1")
}
