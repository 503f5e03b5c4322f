package monitor

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestObserveAndFail(t *testing.T) {
	m := New()
	m.Requests.Inc()
	m.Observe(3, 200*time.Millisecond)
	m.Observe(4, 300*time.Millisecond)
	m.Fail(FailNoDish)
	m.Fail(FailNoDish)
	m.Fail(FailBusy)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.Cells))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Failures.WithLabelValues(FailNoDish)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues(FailBusy)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Duration))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(1, time.Second)
	require.NoError(t, m.Sample())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "cellcount_cells_total 1")
	assert.Contains(t, string(body), "cellcount_detection_seconds_count 1")
	assert.Contains(t, string(body), "memory_usage_Megabytes")
}

func TestRun_StopsOnCancel(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 10*time.Millisecond, zap.NewNop())
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
