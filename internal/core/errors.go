package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can tell recoverable
// column-level issues from batch-fatal consolidation issues.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindRead
	KindHeaderCollision
	KindTimestampColumn
	KindHeaderMismatch
	KindRowCountMismatch
	KindOptions
)

func (k ErrorKind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindHeaderCollision:
		return "header_collision"
	case KindTimestampColumn:
		return "timestamp_column"
	case KindHeaderMismatch:
		return "header_mismatch"
	case KindRowCountMismatch:
		return "row_count_mismatch"
	case KindOptions:
		return "options"
	default:
		return "unknown"
	}
}

// Fatal reports whether an error of this kind stops the run.
func (k ErrorKind) Fatal() bool {
	return k != KindTimestampColumn
}

// PipelineError is returned by every stage of the pipeline.
type PipelineError struct {
	Kind     ErrorKind
	File     string
	Column   string
	Expected int
	Actual   int
	Err      error
}

func (e *PipelineError) Error() string {
	switch e.Kind {
	case KindHeaderMismatch:
		return fmt.Sprintf("header mismatch in file %q: %v", e.File, e.Err)
	case KindRowCountMismatch:
		return fmt.Sprintf("row count mismatch: expected %d rows, consolidated table has %d", e.Expected, e.Actual)
	case KindHeaderCollision:
		if e.File != "" {
			return fmt.Sprintf("header collision in file %q: %v", e.File, e.Err)
		}
		return fmt.Sprintf("header collision: %v", e.Err)
	case KindTimestampColumn:
		return fmt.Sprintf("timestamp conversion failed for column %q: %v", e.Column, e.Err)
	case KindRead:
		return fmt.Sprintf("read %q: %v", e.File, e.Err)
	default:
		if e.File != "" {
			return fmt.Sprintf("%s: %v", e.File, e.Err)
		}
		return e.Err.Error()
	}
}

func (e *PipelineError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first PipelineError in err's chain.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// withFile attaches a file name to a PipelineError that does not have one yet.
func withFile(err error, file string) error {
	var pe *PipelineError
	if errors.As(err, &pe) && pe.File == "" {
		pe.File = file
	}
	return err
}
