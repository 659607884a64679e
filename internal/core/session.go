package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrRunNotFound is returned when a run ID is unknown or has been evicted.
var ErrRunNotFound = errors.New("run not found")

// DefaultMaxSessions is the number of finished runs kept for download.
const DefaultMaxSessions = 32

// RunOptions are the caller's selections for one processing run.
type RunOptions struct {
	NormalizeHeaders bool   `json:"normalize_headers"`
	Timezone         string `json:"timezone" validate:"required,timezone"`
	Consolidate      bool   `json:"consolidate"`
	SampleSize       int    `json:"sample_size" validate:"gte=1,lte=100"`
}

// FileResult is the outcome for one processed file.
type FileResult struct {
	FileName         string    `json:"file_name"`
	OutputName       string    `json:"output_name"`
	Stats            FileStats `json:"stats"`
	TimestampColumns []string  `json:"timestamp_columns,omitempty"`
	Warnings         []Warning `json:"warnings,omitempty"`
	Table            *Table    `json:"-"`
}

// ConsolidatedResult is the merged table of a consolidating run.
type ConsolidatedResult struct {
	OutputName    string    `json:"output_name"`
	Stats         FileStats `json:"stats"`
	RowCountValid bool      `json:"row_count_valid"`
	Table         *Table    `json:"-"`
}

// Session holds everything produced by one run. It is assembled by the run
// and never modified after it has been published to a SessionStore.
type Session struct {
	ID           string              `json:"id"`
	Options      RunOptions          `json:"options"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
	Files        []FileResult        `json:"files"`
	Consolidated *ConsolidatedResult `json:"consolidated,omitempty"`
	Error        *UserMessage        `json:"error,omitempty"`
}

// Warnings returns the warnings of every file in upload order.
func (s *Session) Warnings() []Warning {
	var out []Warning
	for _, f := range s.Files {
		out = append(out, f.Warnings...)
	}
	return out
}

// File returns the i-th file result.
func (s *Session) File(i int) (*FileResult, error) {
	if i < 0 || i >= len(s.Files) {
		return nil, fmt.Errorf("file index %d out of range (run has %d files)", i, len(s.Files))
	}
	return &s.Files[i], nil
}

// SessionStore keeps recent sessions by run ID and tracks the current one.
// Publishing a session replaces the current session wholesale.
type SessionStore struct {
	mu      sync.RWMutex
	current *Session
	byID    *lru.Cache[string, *Session]
}

// NewSessionStore keeps at most size finished sessions.
func NewSessionStore(size int) (*SessionStore, error) {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	cache, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &SessionStore{byID: cache}, nil
}

// Publish stores s and makes it the current session.
func (st *SessionStore) Publish(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.byID.Add(s.ID, s)
	st.current = s
}

// Current returns the most recently published session, or nil.
func (st *SessionStore) Current() *Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Get returns the session with the given run ID.
func (st *SessionStore) Get(id string) (*Session, error) {
	if s, ok := st.byID.Get(id); ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
}

// Len returns the number of stored sessions.
func (st *SessionStore) Len() int {
	return st.byID.Len()
}
