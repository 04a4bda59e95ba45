package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/backup"
	"github.com/jonathan/career-atoms/internal/schemas"
	"github.com/jonathan/career-atoms/internal/server/middleware"
	"github.com/jonathan/career-atoms/internal/store"
	"github.com/jonathan/career-atoms/internal/types"
)

// StoreStatusResponse is the response for GET /v1/store/status
type StoreStatusResponse struct {
	Principal string `json:"principal"`
	Status    string `json:"status"`
}

// requestStore resolves the caller's principal and its remote store.
func (s *Server) requestStore(r *http.Request) (store.Store, error) {
	principal, err := middleware.GetPrincipal(r)
	if err != nil {
		return nil, err
	}
	return s.sessionFor(principal).Store(r.Context())
}

func (s *Server) handleStoreStatus(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.GetPrincipal(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	status, err := s.provisioner.Status(r.Context(), principal)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, StoreStatusResponse{Principal: principal, Status: string(status)})
}

func (s *Server) handleProvision(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.GetPrincipal(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	rec, err := s.provisioner.Ensure(r.Context(), principal)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, rec)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	st, err := s.requestStore(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	doc, err := backup.Export(r.Context(), st)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="career-atoms-%s.json"`, doc.ExportedAt[:10]))
	w.WriteHeader(http.StatusOK)
	if err := backup.Encode(w, doc); err != nil {
		s.logger.Warn("failed to write backup", zap.Error(err))
	}
}

// handleBackupSchema serves the JSON Schema that exported documents satisfy. It needs
// no principal.
func (s *Server) handleBackupSchema(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/schema+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(schemas.BackupSchema()); err != nil {
		s.logger.Warn("failed to write backup schema", zap.Error(err))
	}
}

// handleImport accepts a strict or relaxed backup document. Invalid documents are
// rejected with 400 and the full problem list; per-row failures still return 200
// with success=false.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	st, err := s.requestStore(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBackupBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.errorResponse(w, http.StatusRequestEntityTooLarge, "backup document too large")
			return
		}
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.importer.ImportRaw(r.Context(), raw, st)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.Errors) > 0 && result.Errors[0].Kind == types.ImportErrorValidation {
		status = http.StatusBadRequest
	}
	s.jsonResponse(w, status, result)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	st, err := s.requestStore(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	result, err := st.ClearDatabase(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	st, err := s.requestStore(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	profile, err := st.GetProfile(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if profile == nil {
		s.errorResponse(w, http.StatusNotFound, "Profile not found")
		return
	}
	s.jsonResponse(w, http.StatusOK, profile)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	st, err := s.requestStore(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	jobs, err := st.GetJobs(r.Context())
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid job ID")
		return
	}
	st, err := s.requestStore(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	job, err := st.GetJob(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

func (s *Server) handleListHighlights(w http.ResponseWriter, r *http.Request) {
	filters, err := parseHighlightFilters(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	st, err := s.requestStore(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	highlights, err := st.GetHighlights(r.Context(), filters)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"highlights": highlights, "count": len(highlights)})
}

func (s *Server) handleGetHighlight(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid highlight ID")
		return
	}
	st, err := s.requestStore(r)
	if err != nil {
		s.storeError(w, r, err)
		return
	}

	highlight, err := st.GetHighlight(r.Context(), id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, highlight)
}

// parseHighlightFilters reads the job_id, type and hidden query parameters.
func parseHighlightFilters(r *http.Request) (store.HighlightFilters, error) {
	var filters store.HighlightFilters
	q := r.URL.Query()

	if v := q.Get("job_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filters, &ErrBadRequest{Field: "job_id", Message: "not a UUID"}
		}
		filters.JobID = &id
	}
	if v := q.Get("type"); v != "" {
		t := types.HighlightType(v)
		if !t.Valid() {
			return filters, &ErrBadRequest{Field: "type", Message: fmt.Sprintf("unknown highlight type %q", v)}
		}
		filters.Type = t
	}
	if v := q.Get("hidden"); v != "" {
		hidden, err := strconv.ParseBool(v)
		if err != nil {
			return filters, &ErrBadRequest{Field: "hidden", Message: "must be a boolean"}
		}
		filters.IsHidden = &hidden
	}
	return filters, nil
}
