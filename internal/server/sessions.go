package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/docstruct/internal/common"
	"github.com/joseph-ayodele/docstruct/internal/document"
	"github.com/joseph-ayodele/docstruct/internal/pipeline"
)

// sessionSummary is the response shape for session state.
type sessionSummary struct {
	SessionID string                `json:"session_id"`
	Status    string                `json:"status"`
	Outcome   string                `json:"outcome"`
	Documents int                   `json:"documents"`
	Records   int                   `json:"records"`
	Tables    []string              `json:"tables,omitempty"`
	Errors    []pipeline.StageError `json:"errors"`
}

func summarize(st *pipeline.State) sessionSummary {
	out := sessionSummary{
		SessionID: st.SessionID,
		Status:    string(st.Status),
		Outcome:   string(st.Outcome()),
		Documents: len(st.Documents),
		Records:   len(st.Records),
		Errors:    st.Errors,
	}
	if out.Errors == nil {
		out.Errors = []pipeline.StageError{}
	}
	for _, t := range st.Tables {
		out.Tables = append(out.Tables, t.Name)
	}
	return out
}

// handleCreateSession accepts a multipart batch of documents, assigns a
// session id, runs the pipeline and returns the terminal state summary.
// Per-document failures come back inside "errors" rather than failing the
// request; only a terminally failed session maps to a 5xx.
func (s *Service) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files provided")
		return
	}

	var docs []document.Document
	for _, fh := range files {
		if !document.AllowedName(fh.Filename) {
			writeError(w, http.StatusBadRequest, "unsupported file type: "+fh.Filename)
			return
		}
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file: "+fh.Filename)
			return
		}
		content, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file: "+fh.Filename)
			return
		}
		docs = append(docs, document.New(fh.Filename, content))
	}

	sessionID := uuid.New().String()
	s.logger.Info("session created", zap.String("session_id", sessionID), zap.Int("documents", len(docs)))

	st, runErr := s.orch.Run(r.Context(), sessionID, docs)
	if err := s.store.SaveSession(r.Context(), st); err != nil {
		s.logger.Error("session persist failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if runErr != nil {
		s.logger.Warn("session failed", zap.String("session_id", sessionID), zap.Error(runErr))
		writeJSON(w, http.StatusUnprocessableEntity, summarize(st))
		return
	}
	writeJSON(w, http.StatusCreated, summarize(st))
}

func (s *Service) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListSessions(r.Context())
	if err != nil {
		s.logger.Error("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list sessions failed")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Service) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, summarize(st))
}

func (s *Service) loadSession(w http.ResponseWriter, r *http.Request) (*pipeline.State, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	st, err := s.store.LoadSession(r.Context(), sessionID)
	if errors.Is(err, common.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown session")
		return nil, false
	}
	if err != nil {
		s.logger.Error("load session failed", zap.String("session_id", sessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "load session failed")
		return nil, false
	}
	return st, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
