package core

// timestamp.go detects and normalizes timestamp columns.
//
// Detection is a pure classification over a column's declared type plus a
// bounded prefix sample of its non-null values. Conversion handles two source
// shapes:
//
//   - Values that already carry an explicit UTC offset ("+0000", "+08:00", "Z")
//     are parsed in that fixed offset and converted to UTC. They are never
//     re-localized.
//   - Naive values are interpreted as wall-clock time in the caller's source
//     location, then converted to UTC.
//
// Individual values that cannot be parsed become null. A column in which no
// value parses at all is reported as a KindTimestampColumn error so that the
// caller can keep the column as read.

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultSampleSize is the number of non-null values inspected per column.
const DefaultSampleSize = 5

// DefaultTimezone is the source timezone used when the caller does not pick one (UTC+8).
const DefaultTimezone = "Asia/Singapore"

// Classification is the outcome of inspecting a column for timestamp data.
type Classification int

const (
	// TimestampAmbiguous means there was no evidence either way (e.g. an all-null column).
	// It is treated as "not a timestamp".
	TimestampAmbiguous Classification = iota
	TimestampYes
	TimestampNo
)

func (c Classification) String() string {
	switch c {
	case TimestampYes:
		return "timestamp"
	case TimestampNo:
		return "not_timestamp"
	default:
		return "ambiguous"
	}
}

var (
	// minutePattern matches "YYYY-MM-DD HH:MM" with optional seconds and suffix.
	minutePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}`)

	// offsetPattern matches a full date and time followed by an explicit UTC
	// offset. Bare time ranges such as "10:30-10:45" do not match.
	offsetPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}(:\d{2}(\.\d+)?)?\s?(Z|[+-]\d{2}:?\d{2})$`)
)

// Layouts with an explicit offset. Go accepts fractional seconds after the
// seconds field even when the layout omits them.
var offsetLayouts = []string{
	"2006-01-02 15:04:05-0700",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04Z07:00",
}

// Naive layouts, most specific first. Date-only values reach this list only
// when another value in the column triggered detection.
var naiveLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"02.01.2006 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
}

// sampleValues returns up to n non-null values of the column, in row order,
// rendered as text.
func sampleValues(col Column, n int) []string {
	if n <= 0 {
		n = DefaultSampleSize
	}
	out := make([]string, 0, n)
	for _, c := range col.Cells {
		if len(out) == n {
			break
		}
		if isNullCell(c) {
			continue
		}
		out = append(out, strings.TrimSpace(c.String()))
	}
	return out
}

// hasOffset reports whether a value carries an explicit UTC offset token.
func hasOffset(s string) bool {
	return offsetPattern.MatchString(s)
}

// ClassifyColumn decides whether col holds timestamp data. Native date/time
// columns always qualify; other columns qualify when at least one sampled value
// looks like "YYYY-MM-DD HH:MM" or carries an explicit offset.
func ClassifyColumn(col Column, sampleSize int) Classification {
	if col.Type == TypeDateTime {
		return TimestampYes
	}

	samples := sampleValues(col, sampleSize)
	if len(samples) == 0 {
		return TimestampAmbiguous
	}

	for _, s := range samples {
		if minutePattern.MatchString(s) || hasOffset(s) {
			return TimestampYes
		}
	}
	return TimestampNo
}

// IsTimestampColumn reports whether col should be normalized as timestamps.
func IsTimestampColumn(col Column, sampleSize int) bool {
	return ClassifyColumn(col, sampleSize) == TimestampYes
}

// NormalizeTimestampColumn converts a detected timestamp column to UTC time
// cells. Naive values are localized to loc first; values with an explicit
// offset keep it. Unparseable values become null.
//
// If no non-null value can be parsed the original column is returned together
// with a KindTimestampColumn error.
func NormalizeTimestampColumn(col Column, loc *time.Location, sampleSize int) (Column, error) {
	if loc == nil {
		loc = time.UTC
	}

	offsetMode := false
	if col.Type != TypeDateTime {
		for _, s := range sampleValues(col, sampleSize) {
			if hasOffset(s) {
				offsetMode = true
				break
			}
		}
	}

	cells := make([]Cell, len(col.Cells))
	var nonNull, parsed int

	for i, c := range col.Cells {
		if isNullCell(c) {
			cells[i] = NullCell()
			continue
		}
		nonNull++

		var (
			t  time.Time
			ok bool
		)
		switch {
		case c.Kind == CellTime:
			t, ok = localize(c.Time, loc), true
		case offsetMode:
			t, ok = parseWithOffset(strings.TrimSpace(c.String()))
		default:
			t, ok = parseNaive(strings.TrimSpace(c.String()), loc)
		}

		if !ok {
			cells[i] = NullCell()
			continue
		}
		parsed++
		cells[i] = TimeCell(t.UTC())
	}

	if nonNull > 0 && parsed == 0 {
		return col, &PipelineError{
			Kind:   KindTimestampColumn,
			Column: col.Header,
			Err:    fmt.Errorf("none of %d values could be parsed", nonNull),
		}
	}

	return Column{Header: col.Header, Type: TypeDateTime, Cells: cells}, nil
}

// localize reinterprets the wall clock of a naive time in loc.
func localize(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}

func parseWithOffset(s string) (time.Time, bool) {
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNaive(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
