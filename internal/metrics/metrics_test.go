package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(nil)
	m.ScanOutcome(OutcomeCompleted)
	m.ScanOutcome(OutcomeCompleted)
	m.ScanOutcome(OutcomeSkipped)
	m.FrameErrors.Inc()
	m.ObserveOCR(40 * time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Scans.WithLabelValues(OutcomeCompleted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scans.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Scans.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FrameErrors))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OCRDuration))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New(nil)
	m.ROICommits.Inc()
	m.SampleProcess()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "readout_roi_commits_total 1"))
	assert.Contains(t, body, "readout_memory_usage_megabytes")
}

func TestRunSamplerStops(t *testing.T) {
	m := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunSampler(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sampler did not stop")
	}
}
