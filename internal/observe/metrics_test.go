package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/cwbudde/algo-autotune/autotune"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumByAttr returns the data point values of an int64 sum keyed by the
// string value of attribute key.
func sumByAttr(t *testing.T, m *metricdata.Metrics, key string) map[string]int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: data is %T, want Sum[int64]", m.Name, m.Data)
	}
	out := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attribute.Key(key))
		out[v.AsString()] += dp.Value
	}
	return out
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecorderAdapter(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	var rec autotune.Recorder = m
	rec.RecordStage(ctx, autotune.StageDetect, 120*time.Millisecond)
	rec.RecordStage(ctx, autotune.StageShift, 2*time.Second)
	rec.RecordFrames(ctx, autotune.FramesVoiced, 40)
	rec.RecordFrames(ctx, autotune.FramesShifted, 12)
	rec.RecordFrames(ctx, autotune.FramesDegraded, 0)

	rm := collect(t, reader)

	stage := findMetric(rm, "autotune.pipeline.duration")
	if stage == nil {
		t.Fatal("autotune.pipeline.duration not recorded")
	}
	hist, ok := stage.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data is %T, want Histogram[float64]", stage.Data)
	}
	if len(hist.DataPoints) != 2 {
		t.Fatalf("stage data points = %d, want 2", len(hist.DataPoints))
	}

	frames := findMetric(rm, "autotune.frames")
	if frames == nil {
		t.Fatal("autotune.frames not recorded")
	}
	got := sumByAttr(t, frames, "kind")
	if got[autotune.FramesVoiced] != 40 || got[autotune.FramesShifted] != 12 {
		t.Fatalf("frames = %v", got)
	}
	if _, ok := got[autotune.FramesDegraded]; ok {
		t.Fatal("zero frame count should not be recorded")
	}
}

func TestRecordJob(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordJob(ctx, JobDone)
	m.RecordJob(ctx, JobDone)
	m.RecordJob(ctx, JobFailed)

	jobs := findMetric(collect(t, reader), "autotune.jobs")
	if jobs == nil {
		t.Fatal("autotune.jobs not recorded")
	}
	got := sumByAttr(t, jobs, "status")
	if got[JobDone] != 2 || got[JobFailed] != 1 {
		t.Fatalf("jobs = %v", got)
	}
}
