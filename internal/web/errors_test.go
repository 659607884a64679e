package web

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JonMunkholm/sheetnorm/internal/logging"
)

func TestRespondError_LogLevel(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		level  string
	}{
		{name: "mapped client error", err: errors.New("no file provided"), status: http.StatusBadRequest, level: "level=WARN"},
		{name: "unmapped client error", err: errors.New("invalid form: boom"), status: http.StatusBadRequest, level: "level=ERROR"},
		{name: "server error", err: errors.New("empty file"), status: http.StatusInternalServerError, level: "level=ERROR"},
	}

	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			slog.SetDefault(logging.New(&buf, "debug", "text"))

			rec := httptest.NewRecorder()
			respondError(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil), tt.err, tt.status)

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, buf.String(), tt.level)
		})
	}
}
