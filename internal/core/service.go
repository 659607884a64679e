package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ServiceConfig holds the limits and defaults a Service runs with.
type ServiceConfig struct {
	MaxFileSize       int64
	MaxFiles          int
	MaxConcurrentRuns int
	MaxWaitTime       time.Duration
	MaxSessions       int
	DefaultTimezone   string
	SampleSize        int
	Registerer        prometheus.Registerer
	Logger            *slog.Logger
}

// Service runs batches of files through the pipeline and keeps the results.
type Service struct {
	cfg       ServiceConfig
	logger    *slog.Logger
	processor *Processor
	limiter   *RunLimiter
	sessions  *SessionStore
	metrics   *Metrics
	validate  *validator.Validate
}

// NewService creates a Service. Zero-valued limits fall back to defaults.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 100 * 1024 * 1024
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 20
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = DefaultTimezone
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = DefaultSampleSize
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("default timezone %q: %w", cfg.DefaultTimezone, err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sessions, err := NewSessionStore(cfg.MaxSessions)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:       cfg,
		logger:    logger,
		processor: NewProcessor(logger),
		limiter:   NewRunLimiter(cfg.MaxConcurrentRuns, cfg.MaxWaitTime),
		sessions:  sessions,
		metrics:   NewMetrics(cfg.Registerer),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}, nil
}

// Sessions returns the store holding finished runs.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// LimiterStatus reports how many runs are in flight.
func (s *Service) LimiterStatus() RunLimiterStatus { return s.limiter.Status() }

// WaitForRuns blocks until in-flight runs finish or ctx is done.
func (s *Service) WaitForRuns(ctx context.Context) error { return s.limiter.WaitForDrain(ctx) }

// DefaultOptions returns the options used when the caller selects nothing.
func (s *Service) DefaultOptions() RunOptions {
	return RunOptions{
		NormalizeHeaders: true,
		Timezone:         s.cfg.DefaultTimezone,
		SampleSize:       s.cfg.SampleSize,
	}
}

// Run processes sources in order and publishes the resulting Session.
//
// Files are handled one at a time. A file that cannot be read or whose headers
// collide stops the run; files finished before it stay in the session. When
// opts.Consolidate is set, each file's headers are compared with the first
// file's as soon as it is processed, and the merged table is validated after
// the last file.
//
// The returned session is non-nil whenever options were valid, including on
// failure, so callers can show partial results next to the error. Zero sources
// is a no-op.
func (s *Service) Run(ctx context.Context, sources []Source, opts RunOptions) (*Session, error) {
	if opts.Timezone == "" {
		opts.Timezone = s.cfg.DefaultTimezone
	}
	if opts.SampleSize == 0 {
		opts.SampleSize = s.cfg.SampleSize
	}
	if err := s.validate.Struct(opts); err != nil {
		return nil, &PipelineError{Kind: KindOptions, Err: err}
	}
	loc, err := time.LoadLocation(opts.Timezone)
	if err != nil {
		return nil, &PipelineError{Kind: KindOptions, Err: err}
	}
	if len(sources) > s.cfg.MaxFiles {
		return nil, &PipelineError{
			Kind: KindOptions,
			Err:  fmt.Errorf("%d files exceeds the limit of %d per run", len(sources), s.cfg.MaxFiles),
		}
	}

	session := &Session{
		ID:        uuid.NewString(),
		Options:   opts,
		StartedAt: time.Now(),
	}
	if len(sources) == 0 {
		session.FinishedAt = session.StartedAt
		return session, nil
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	logger := s.logger.With("run_id", session.ID)
	logger.Info("run started",
		"files", len(sources),
		"timezone", opts.Timezone,
		"normalize_headers", opts.NormalizeHeaders,
		"consolidate", opts.Consolidate,
	)

	runErr := s.execute(ctx, session, sources, loc, logger)

	session.FinishedAt = time.Now()
	duration := session.FinishedAt.Sub(session.StartedAt)
	s.metrics.RunDuration.Observe(duration.Seconds())

	if runErr != nil {
		msg := MapError(runErr)
		session.Error = &msg
		s.metrics.Runs.WithLabelValues(KindOf(runErr).String()).Inc()
		logger.Error("run failed",
			"error", runErr,
			"kind", KindOf(runErr).String(),
			"files_done", len(session.Files),
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		s.metrics.Runs.WithLabelValues("ok").Inc()
		logger.Info("run completed",
			"files", len(session.Files),
			"consolidated", session.Consolidated != nil,
			"warnings", len(session.Warnings()),
			"duration_ms", duration.Milliseconds(),
		)
	}

	s.sessions.Publish(session)
	return session, runErr
}

func (s *Service) execute(ctx context.Context, session *Session, sources []Source, loc *time.Location, logger *slog.Logger) error {
	opts := session.Options
	popts := ProcessOptions{
		NormalizeHeaders: opts.NormalizeHeaders,
		Location:         loc,
		SampleSize:       opts.SampleSize,
	}

	tables := make([]*Table, 0, len(sources))
	stats := make([]FileStats, 0, len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := s.processSource(src, popts)
		if err != nil {
			return err
		}

		fs := CollectStats(src.Name, result.Table)
		if opts.Consolidate && len(stats) > 0 {
			if err := CheckHeaders(stats[0], fs); err != nil {
				return err
			}
		}

		tables = append(tables, result.Table)
		stats = append(stats, fs)
		session.Files = append(session.Files, FileResult{
			FileName:         src.Name,
			OutputName:       OutputFileName(src.Name),
			Stats:            fs,
			TimestampColumns: result.TimestampColumns,
			Warnings:         result.Warnings,
			Table:            result.Table,
		})

		s.metrics.Files.Inc()
		s.metrics.Rows.Add(float64(fs.RowCount))
		s.metrics.TimestampColumns.Add(float64(len(result.TimestampColumns)))
		s.metrics.Warnings.Add(float64(len(result.Warnings)))

		logger.Info("file processed",
			"file", src.Name,
			"rows", fs.RowCount,
			"columns", fs.ColumnCount,
			"timestamp_columns", len(result.TimestampColumns),
			"warnings", len(result.Warnings),
		)
	}

	if !opts.Consolidate || len(tables) < 2 {
		return nil
	}

	merged, err := Consolidate(tables)
	if err != nil {
		return err
	}
	if err := ValidateConsolidation(stats, merged); err != nil {
		return err
	}

	session.Consolidated = &ConsolidatedResult{
		OutputName:    ConsolidatedFileName,
		Stats:         CollectStats(ConsolidatedFileName, merged),
		RowCountValid: true,
		Table:         merged,
	}
	return nil
}

// processSource reads and normalizes one file. Failures that are not already
// pipeline errors are reported against the file.
func (s *Service) processSource(src Source, opts ProcessOptions) (*ProcessResult, error) {
	if int64(len(src.Data)) > s.cfg.MaxFileSize {
		return nil, &PipelineError{
			Kind: KindRead,
			File: src.Name,
			Err:  fmt.Errorf("file too large: %d bytes exceeds %d", len(src.Data), s.cfg.MaxFileSize),
		}
	}

	raw, err := ReadSource(src)
	if err != nil {
		return nil, err
	}

	result, err := s.processor.Process(raw, opts)
	if err != nil {
		var pe *PipelineError
		if !errors.As(err, &pe) {
			err = &PipelineError{Kind: KindUnknown, File: src.Name, Err: err}
		}
		return nil, err
	}
	return result, nil
}
