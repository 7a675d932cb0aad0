package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Service) handleGetTables(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, st.Tables)
}

func (s *Service) handleGetXLSX(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	b, err := s.exporter.TablesXLSX(st.Tables)
	if err != nil {
		s.logger.Error("xlsx export failed", zap.String("session_id", st.SessionID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+st.SessionID+`.xlsx"`)
	_, _ = w.Write(b)
}

func (s *Service) handleGetCSV(w http.ResponseWriter, r *http.Request) {
	st, ok := s.loadSession(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "table")
	for _, t := range st.Tables {
		if t.Name != name {
			continue
		}
		b, err := s.exporter.TableCSV(t)
		if err != nil {
			s.logger.Error("csv export failed", zap.String("table", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "export failed")
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.csv"`)
		_, _ = w.Write(b)
		return
	}
	writeError(w, http.StatusNotFound, "unknown table")
}
