// Package metrics provides the observability hooks for SiteBuilder builds.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	recorder := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Dev.Metrics {
//	    recorder = metrics.NewPrometheusRecorder(registry)
//	}
//
// The dev server exposes the Prometheus registry at /metrics via HTTPHandler.
package metrics
