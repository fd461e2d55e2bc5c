package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg, reg)

	r.RecordBars("EURUSD", 1200)
	r.RecordExtrema("EURUSD", 80)
	r.RecordDay("EURUSD", true)
	r.RecordDay("EURUSD", true)
	r.RecordDay("EURUSD", false)
	r.RecordZones("EURUSD", 6)
	r.RecordError("load_bars")
	r.RecordLatency("detect", 0.01)

	assert.Equal(t, 1200.0, testutil.ToFloat64(r.bars.WithLabelValues("EURUSD")))
	assert.Equal(t, 80.0, testutil.ToFloat64(r.extrema.WithLabelValues("EURUSD")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.days.WithLabelValues("EURUSD", "built")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.days.WithLabelValues("EURUSD", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("load_bars")))

	n, err := testutil.GatherAndCount(reg, "srzones_zones_per_day", "srzones_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg, reg)
	r.RecordBars("EURUSD", 10)

	require.NoError(t, r.Push(srv.URL, "srzones"))
	assert.Equal(t, "/metrics/job/srzones", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg, reg)
	r.RecordBars("EURUSD", 10)
	assert.Error(t, r.Push(srv.URL, "srzones"))
}
