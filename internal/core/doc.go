// Package core provides the normalization and consolidation pipeline for
// spreadsheet exports.
//
// This package is the heart of sheetnorm, containing all domain logic
// independent of any UI or transport layer. It is used by the HTTP server,
// the CLI, and tests without modification.
//
// # Pipeline
//
// Each uploaded file goes through the same fixed sequence:
//
//  1. [ReadSource] decodes a .csv, .xlsx or .xls file into a [RawTable]
//  2. [NormalizeHeaders] canonicalizes headers to snake_case and rejects collisions
//  3. [ClassifyColumn] samples each column; timestamp columns are converted by
//     [NormalizeTimestampColumn] to UTC ("2006-01-02 15:04:05-0700")
//  4. [Sanitize] replaces blank, whitespace-only and dash-only cells with [NullMarker]
//  5. [CollectStats] snapshots row/column counts for reporting
//
// Header normalization runs before timestamp detection because consolidation
// keys off final header names. Sanitization runs last so that timestamp values
// coerced to null also render as [NullMarker].
//
// # Consolidation
//
// When a run asks for consolidation, every processed file is compared against
// the first one as soon as it finishes ([CheckHeaders]), so a mismatch aborts
// the run naming the offending file. The merged table is then re-validated by
// [ValidateConsolidation], which checks headers again and that the row count
// equals the sum of the inputs.
//
// # Error Handling
//
// Failures are explicit values of type [*PipelineError] carrying an [ErrorKind]:
//
//   - KindTimestampColumn: recoverable, the column is kept as read and a
//     [Warning] is recorded
//   - KindRead, KindHeaderCollision: the file failed, the run stops
//   - KindHeaderMismatch, KindRowCountMismatch: consolidation failed
//
// Technical errors are mapped to user-friendly messages using [MapError].
//
// # Sessions
//
// [Service.Run] produces a [Session] holding the most recent batch. Sessions are
// never mutated after they are published to the [SessionStore]; a new run
// replaces the current session wholesale.
package core
