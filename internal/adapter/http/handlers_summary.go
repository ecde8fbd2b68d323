package adapthttp

import (
	"net/http"

	"runlog/internal/domain"
)

func (s *Server) handleSummaryWeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	week, err := s.summary.CurrentWeek(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeekDTO(*week))
}

func (s *Server) handleSummaryWeeks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	weeks, err := s.summary.WeeklyHistory(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	items := make([]weekHistoryDTO, 0, len(weeks))
	for _, wk := range weeks {
		items = append(items, weekHistoryDTO{
			Start:  wk.Start.Format(domain.DateLayout),
			End:    wk.End.Format(domain.DateLayout),
			Actual: wk.Actual.InexactFloat64(),
			Target: wk.Target.InexactFloat64(),
			Diff:   floatPtr(wk.Diff),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleSummaryStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.summary.ComputeStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(*stats))
}

func (s *Server) handleSummaryStreak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	streak, err := s.summary.Streak(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"streak": streak})
}

func (s *Server) handleChartData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	points, err := s.summary.ChartSeries(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": points})
}
