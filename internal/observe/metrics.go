// Package observe provides application-wide observability primitives for
// the autotune service: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. Tests should use [NewMetrics]
// with a custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cwbudde/algo-autotune/autotune"
)

// meterName is the instrumentation scope name used for all service metrics.
const meterName = "github.com/cwbudde/algo-autotune"

// Job outcomes recorded by [Metrics.RecordJob].
const (
	JobDone   = "done"
	JobFailed = "failed"
	JobReject = "rejected"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// StageDuration tracks pipeline stage latency. Use with attribute:
	//   attribute.String("stage", ...)
	StageDuration metric.Float64Histogram

	// Jobs counts processed uploads. Use with attribute:
	//   attribute.String("status", ...)
	Jobs metric.Int64Counter

	// Frames counts analysed frames. Use with attribute:
	//   attribute.String("kind", ...)
	Frames metric.Int64Counter

	// AudioSeconds counts the duration of processed audio.
	AudioSeconds metric.Float64Counter

	// ActiveJobs tracks jobs currently being processed.
	ActiveJobs metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// offline processing of song-length audio.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("autotune.pipeline.duration",
		metric.WithDescription("Latency of autotune pipeline stages."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Jobs, err = m.Int64Counter("autotune.jobs",
		metric.WithDescription("Total autotune jobs by status."),
	); err != nil {
		return nil, err
	}
	if met.Frames, err = m.Int64Counter("autotune.frames",
		metric.WithDescription("Total analysed frames by kind."),
	); err != nil {
		return nil, err
	}
	if met.AudioSeconds, err = m.Float64Counter("autotune.audio.duration",
		metric.WithDescription("Total seconds of audio processed."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if met.ActiveJobs, err = m.Int64UpDownCounter("autotune.active_jobs",
		metric.WithDescription("Number of jobs currently being processed."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("autotune.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordJob counts a finished job with its outcome.
func (m *Metrics) RecordJob(ctx context.Context, status string) {
	m.Jobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordStage implements [autotune.Recorder].
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordFrames implements [autotune.Recorder].
func (m *Metrics) RecordFrames(ctx context.Context, kind string, n int) {
	if n <= 0 {
		return
	}
	m.Frames.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
}

var _ autotune.Recorder = (*Metrics)(nil)
