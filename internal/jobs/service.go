// Package jobs stores autotune jobs and runs uploads through the pipeline.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cwbudde/algo-autotune/autotune"
	"github.com/cwbudde/algo-autotune/internal/audiofile"
	"github.com/cwbudde/algo-autotune/internal/config"
	"github.com/cwbudde/algo-autotune/internal/observe"
)

// stageEncode names WAV encoding failures in a [autotune.ProcessingError].
const stageEncode = "encode"

// Upload is a file submitted for correction.
type Upload struct {
	// Name is the client's file name; its extension selects the decoder.
	Name   string
	Body   io.Reader
	Params autotune.Params
}

// Result is a finished job with its run report.
type Result struct {
	Job    Job
	Report autotune.Report
}

// IsInputError reports whether err was caused by the submitted file or
// parameters rather than by the service.
func IsInputError(err error) bool {
	return errors.Is(err, autotune.ErrInvalidInput) ||
		errors.Is(err, autotune.ErrUnknownRoot) ||
		errors.Is(err, audiofile.ErrUnsupportedFormat) ||
		errors.Is(err, audiofile.ErrDecode)
}

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithMetrics records job counters and active job gauges on m.
func WithMetrics(m *observe.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger. Without it the default logger is used
// with trace ids attached.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service turns uploads into corrected WAV files and records them.
type Service struct {
	store    *Store
	pipeline *autotune.Pipeline
	storage  config.StorageConfig
	proc     config.ProcessingConfig
	metrics  *observe.Metrics
	logger   *slog.Logger
}

// NewService wires a store and pipeline to the configured directories.
func NewService(store *Store, pipeline *autotune.Pipeline, cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	s := &Service{
		store:    store,
		pipeline: pipeline,
		storage:  cfg.Storage,
		proc:     cfg.Processing,
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, dir := range []string{s.storage.UploadDir(), s.storage.ProcessedDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("jobs: creating %s: %w", dir, err)
		}
	}
	return s, nil
}

// Pipeline returns the pipeline jobs run through.
func (s *Service) Pipeline() *autotune.Pipeline { return s.pipeline }

// Submit stores up, corrects it and writes the result. The job is recorded
// even when processing fails. Errors for which [IsInputError] holds are the
// client's fault.
func (s *Service) Submit(ctx context.Context, up Upload) (Result, error) {
	ctx, span := observe.StartSpan(ctx, "jobs.Submit")
	defer span.End()

	format, err := audiofile.FormatOf(up.Name)
	if err != nil {
		s.finish(ctx, observe.JobReject)
		return Result{}, err
	}

	params := Defaults(s.proc, up.Params)
	if _, err := autotune.ParseNote(params.RootNote); err != nil {
		s.finish(ctx, observe.JobReject)
		return Result{}, err
	}

	if s.metrics != nil {
		s.metrics.ActiveJobs.Add(ctx, 1)
		defer s.metrics.ActiveJobs.Add(ctx, -1)
	}

	job := &Job{
		ID:           uuid.NewString(),
		OriginalName: filepath.Base(up.Name),
		Strength:     s.pipeline.Strength(params.Strength),
		ScaleType:    params.ScaleType,
		RootNote:     params.RootNote,
		Status:       StatusPending,
	}
	job.InputPath = filepath.Join(s.storage.UploadDir(), job.ID+filepath.Ext(up.Name))
	span.SetAttributes(attribute.String("job.id", job.ID), attribute.String("job.format", format.String()))

	log := s.log(ctx).With("job_id", job.ID)

	if err := saveUpload(job.InputPath, up.Body); err != nil {
		s.finish(ctx, observe.JobFailed)
		return Result{}, err
	}
	if err := s.store.Create(ctx, job); err != nil {
		os.Remove(job.InputPath)
		s.finish(ctx, observe.JobFailed)
		return Result{}, err
	}

	res, err := s.process(ctx, job, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		log.WarnContext(ctx, "job failed", "file", job.OriginalName, "err", err)

		job.Status = StatusFailed
		job.Error = err.Error()
		if uerr := s.store.Update(ctx, job); uerr != nil {
			log.ErrorContext(ctx, "recording failed job", "err", uerr)
		}

		status := observe.JobFailed
		if IsInputError(err) {
			status = observe.JobReject
		}
		s.finish(ctx, status)
		return Result{}, err
	}

	log.InfoContext(ctx, "job done",
		"file", job.OriginalName,
		"duration_ms", job.DurationMs,
		"frames", res.Report.Frames,
		"shifted", res.Report.ShiftedFrames,
	)
	s.finish(ctx, observe.JobDone)
	return res, nil
}

func (s *Service) process(ctx context.Context, job *Job, params autotune.Params) (Result, error) {
	sig, src, err := audiofile.Load(job.InputPath, s.proc.SampleRate)
	if err != nil {
		return Result{}, err
	}
	job.SampleRate = sig.SampleRate
	job.DurationMs = src.Duration().Milliseconds()
	if s.metrics != nil {
		s.metrics.AudioSeconds.Add(ctx, src.Duration().Seconds())
	}

	out, report, err := s.pipeline.Run(ctx, sig, params)
	if err != nil {
		return Result{}, err
	}

	job.OutputPath = filepath.Join(s.storage.ProcessedDir(), job.ProcessedName())
	if err := audiofile.SaveWAV(job.OutputPath, out, s.proc.BitDepth, EncodeOptions(s.proc)...); err != nil {
		return Result{}, &autotune.ProcessingError{Stage: stageEncode, Err: err}
	}

	job.Status = StatusDone
	job.ScaleType = report.ScaleType
	job.RootNote = report.RootNote
	job.Frames = report.Frames
	job.VoicedFrames = report.VoicedFrames
	if err := s.store.Update(ctx, job); err != nil {
		return Result{}, err
	}

	return Result{Job: *job, Report: report}, nil
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return observe.Logger(ctx)
}

func (s *Service) finish(ctx context.Context, status string) {
	if s.metrics != nil {
		s.metrics.RecordJob(ctx, status)
	}
}

// Result returns the finished job id refers to. Unknown, pending and failed
// jobs, and jobs whose output file is gone, return [ErrNotFound].
func (s *Service) Result(ctx context.Context, id string) (Job, error) {
	if err := uuid.Validate(id); err != nil {
		return Job{}, fmt.Errorf("jobs: job %q: %w", id, ErrNotFound)
	}

	j, err := s.store.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}
	if j.Status != StatusDone || j.OutputPath == "" {
		return Job{}, fmt.Errorf("jobs: job %s is %s: %w", id, j.Status, ErrNotFound)
	}
	if _, err := os.Stat(j.OutputPath); err != nil {
		return Job{}, fmt.Errorf("jobs: result of %s: %w", id, ErrNotFound)
	}
	return j, nil
}

// List returns recent jobs, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Job, error) {
	return s.store.List(ctx, limit)
}

// Ready reports whether the job database is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func saveUpload(path string, body io.Reader) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("jobs: creating upload: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("jobs: closing upload: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("jobs: saving upload: %w", err)
	}
	return nil
}
