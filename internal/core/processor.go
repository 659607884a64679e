package core

import (
	"errors"
	"log/slog"
	"time"
)

// Processor normalizes a single raw table.
type Processor struct {
	logger *slog.Logger
}

// NewProcessor creates a Processor. A nil logger falls back to slog.Default().
func NewProcessor(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger}
}

// Process runs the fixed pipeline over raw: header normalization, timestamp
// detection and conversion for every column, then null sanitization.
//
// Column-level timestamp failures are absorbed: the column is kept as read and
// a Warning is added to the result. Header collisions are returned as errors.
func (p *Processor) Process(raw *RawTable, opts ProcessOptions) (*ProcessResult, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	sampleSize := opts.SampleSize
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	table := raw.Clone()

	headers, err := NormalizeHeaders(table.Headers(), opts.NormalizeHeaders)
	if err != nil {
		return nil, withFile(err, raw.Name)
	}
	for i := range table.Columns {
		table.Columns[i].Header = headers[i]
	}

	result := &ProcessResult{Table: table}

	for i, col := range table.Columns {
		class := ClassifyColumn(col, sampleSize)
		p.logger.Debug("column classified",
			"file", raw.Name,
			"column", col.Header,
			"type", col.Type.String(),
			"classification", class.String(),
		)
		if class != TimestampYes {
			continue
		}

		converted, err := NormalizeTimestampColumn(col, loc, sampleSize)
		if err != nil {
			var pe *PipelineError
			if !errors.As(err, &pe) || pe.Kind.Fatal() {
				return nil, withFile(err, raw.Name)
			}
			p.logger.Warn("timestamp column left as read",
				"file", raw.Name,
				"column", col.Header,
				"error", err,
			)
			result.Warnings = append(result.Warnings, Warning{
				File:    raw.Name,
				Column:  col.Header,
				Message: err.Error(),
			})
			continue
		}

		table.Columns[i] = converted
		result.TimestampColumns = append(result.TimestampColumns, col.Header)
	}

	Sanitize(table)

	return result, nil
}
