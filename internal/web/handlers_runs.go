package web

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetnorm/internal/core"
	"github.com/JonMunkholm/sheetnorm/internal/logging"
)

// multipartMemory is the part of a multipart body kept in memory; larger
// uploads spill to temporary files.
const multipartMemory = 32 << 20

var errNoFile = errors.New("no file provided")

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string                `json:"status"`
	Runs     core.RunLimiterStatus `json:"runs"`
	Sessions int                   `json:"sessions"`
}

// handleHealth reports liveness plus run slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Runs:     s.service.LimiterStatus(),
		Sessions: s.service.Sessions().Len(),
	})
}

// handleCreateRun processes the uploaded files as one run.
//
// Form fields: files (repeated), normalize_headers, timezone, consolidate,
// sample_size. Omitted options take the server defaults. When the run fails
// after some files were processed the session is still returned, with the
// error inside it and a non-2xx status.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Upload.MaxFileSize*int64(s.cfg.Upload.MaxFiles) + multipartMemory
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("file too large: request exceeds %d bytes", limit), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("invalid form: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	opts, err := s.parseRunOptions(r)
	if err != nil {
		respondError(w, r, &core.PipelineError{Kind: core.KindOptions, Err: err}, http.StatusBadRequest)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		respondError(w, r, errNoFile, http.StatusBadRequest)
		return
	}

	sources := make([]core.Source, 0, len(headers))
	for _, fh := range headers {
		src, err := readPart(fh)
		if err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
		sources = append(sources, src)
	}

	logger := logging.WithFields(r.Context(), "files", len(sources))
	logger.Info("run requested", "timezone", opts.Timezone, "consolidate", opts.Consolidate)

	session, err := s.service.Run(r.Context(), sources, opts)
	if err != nil {
		if session == nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		logger.Warn("run finished with error", "run_id", session.ID, "error", err)
		writeJSON(w, statusFor(err), session)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// parseRunOptions reads run options from the form, falling back to defaults.
func (s *Server) parseRunOptions(r *http.Request) (core.RunOptions, error) {
	opts := s.service.DefaultOptions()
	opts.NormalizeHeaders = s.cfg.Processing.NormalizeHeaders

	if v := r.FormValue("normalize_headers"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("normalize_headers: %w", err)
		}
		opts.NormalizeHeaders = b
	}
	if v := r.FormValue("consolidate"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("consolidate: %w", err)
		}
		opts.Consolidate = b
	}
	if v := r.FormValue("timezone"); v != "" {
		opts.Timezone = v
	}
	if v := r.FormValue("sample_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fmt.Errorf("sample_size: %w", err)
		}
		opts.SampleSize = n
	}
	return opts, nil
}

func readPart(fh *multipart.FileHeader) (core.Source, error) {
	f, err := fh.Open()
	if err != nil {
		return core.Source{}, fmt.Errorf("open %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return core.Source{}, fmt.Errorf("read %q: %w", fh.Filename, err)
	}
	return core.Source{Name: fh.Filename, Data: data}, nil
}

// handleCurrentRun returns the most recently finished run.
func (s *Server) handleCurrentRun(w http.ResponseWriter, r *http.Request) {
	session := s.service.Sessions().Current()
	if session == nil {
		respondError(w, r, core.ErrRunNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleGetRun returns a run by ID.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleDownloadFile streams one normalized file as CSV.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupRun(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, r, fmt.Errorf("invalid file index: %w", err), http.StatusBadRequest)
		return
	}
	file, err := session.File(index)
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	writeCSV(w, r, file.OutputName, file.Table)
}

// handleDownloadConsolidated streams the merged table as CSV.
func (s *Server) handleDownloadConsolidated(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if session.Consolidated == nil {
		respondError(w, r, errors.New("run has no consolidated output"), http.StatusNotFound)
		return
	}

	writeCSV(w, r, session.Consolidated.OutputName, session.Consolidated.Table)
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	session, err := s.service.Sessions().Get(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func writeCSV(w http.ResponseWriter, r *http.Request, name string, table *core.Table) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, name))

	if err := core.WriteCSV(w, table); err != nil {
		// Headers are already sent.
		logging.FromContext(r.Context()).Error("csv write failed", "file", name, "error", err)
	}
}
