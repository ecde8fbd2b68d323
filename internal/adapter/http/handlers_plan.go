package adapthttp

import (
	"net/http"
)

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		overview, err := s.summary.Plan(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, toPlanDTO(*overview))

	case http.MethodPut:
		var body struct {
			Date   string  `json:"date"`
			Target float64 `json:"target"`
		}
		if err := parseJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.plan.SetTarget(ctx, body.Date, body.Target); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePlanImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var (
		imported int
		err      error
	)
	switch r.URL.Query().Get("format") {
	case "yaml":
		imported, err = s.plan.ImportYAML(r.Context(), r.Body)
	default:
		imported, err = s.plan.ImportCSV(r.Context(), r.Body)
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}

func (s *Server) handlePlanEntryByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id, err := pathID(r, "/plan/")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.plan.DeleteEntry(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
