package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)

	pr.ObserveTaskDuration("styles", 150*time.Millisecond)
	pr.IncTaskResult("styles", ResultSuccess)
	pr.IncTaskResult("pages", ResultFailed)
	pr.ObserveBuildDuration("prod", 500*time.Millisecond)
	pr.IncBuildOutcome("prod", "success")
	pr.AddFilesWritten("pages", 3)
	pr.AddFilesWritten("pages", 0)
	pr.IncReload("css")

	assert.InDelta(t, 1, testutil.ToFloat64(pr.taskResults.WithLabelValues("pages", "failed")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(pr.filesWritten.WithLabelValues("pages")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(pr.reloads.WithLabelValues("css")), 0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestHTTPHandlerServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.IncBuildOutcome("dev", "success")

	srv := httptest.NewServer(HTTPHandler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "sitebuilder_build_outcomes_total")
}

func TestNoopRecorderSatisfiesInterface(_ *testing.T) {
	var r Recorder = NoopRecorder{}
	r.ObserveTaskDuration("x", time.Second)
	r.IncTaskResult("x", ResultSkipped)
	r.ObserveBuildDuration("dev", time.Second)
	r.IncBuildOutcome("dev", "success")
	r.AddFilesWritten("x", 1)
	r.IncReload("full")
}
