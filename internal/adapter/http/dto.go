package adapthttp

import (
	"errors"
	"net/http"
	"time"

	"runlog/internal/app"
	"runlog/internal/domain"

	"github.com/shopspring/decimal"
)

type runDTO struct {
	ID       int64    `json:"id"`
	Date     string   `json:"date"`
	Distance float64  `json:"distance"`
	Duration string   `json:"duration,omitempty"`
	Pace     string   `json:"pace,omitempty"`
	Source   string   `json:"source"`
	Target   *float64 `json:"target,omitempty"`
	Diff     *float64 `json:"diff,omitempty"`
}

func toRunDTO(r domain.Run) runDTO {
	return runDTO{
		ID:       r.ID,
		Date:     r.Date.Format(domain.DateLayout),
		Distance: r.Distance.InexactFloat64(),
		Duration: r.DurationFormatted(),
		Pace:     r.PaceFormatted(),
		Source:   r.Source,
	}
}

func toRunWithTargetDTO(rt app.RunWithTarget) runDTO {
	dto := toRunDTO(rt.Run)
	dto.Target = floatPtr(rt.Target)
	dto.Diff = floatPtr(rt.Diff)
	return dto
}

func toRunDTOs(runs []app.RunWithTarget) []runDTO {
	out := make([]runDTO, 0, len(runs))
	for _, rt := range runs {
		out = append(out, toRunWithTargetDTO(rt))
	}
	return out
}

type weekDTO struct {
	Start      string   `json:"start"`
	End        string   `json:"end"`
	Actual     float64  `json:"actual"`
	Target     float64  `json:"target"`
	DaysLogged int      `json:"days_logged"`
	Progress   *float64 `json:"progress,omitempty"`
}

func toWeekDTO(w app.WeekSummary) weekDTO {
	return weekDTO{
		Start:      w.Start.Format(domain.DateLayout),
		End:        w.End.Format(domain.DateLayout),
		Actual:     w.Actual.InexactFloat64(),
		Target:     w.Target.InexactFloat64(),
		DaysLogged: w.DaysLogged,
		Progress:   w.Progress,
	}
}

type weekHistoryDTO struct {
	Start  string   `json:"start"`
	End    string   `json:"end"`
	Actual float64  `json:"actual"`
	Target float64  `json:"target"`
	Diff   *float64 `json:"diff,omitempty"`
}

type statsDTO struct {
	TotalRuns     int     `json:"total_runs"`
	TotalDistance float64 `json:"total_distance"`
	AvgDistance   float64 `json:"avg_distance"`
	MaxDistance   float64 `json:"max_distance"`
	MinDistance   float64 `json:"min_distance"`
	BestWeekStart string  `json:"best_week_start,omitempty"`
	BestWeekTotal float64 `json:"best_week_total"`
	Streak        int     `json:"streak"`
}

func toStatsDTO(st app.Stats) statsDTO {
	dto := statsDTO{
		TotalRuns:     st.TotalRuns,
		TotalDistance: st.TotalDistance.InexactFloat64(),
		AvgDistance:   st.AvgDistance.InexactFloat64(),
		MaxDistance:   st.MaxDistance.InexactFloat64(),
		MinDistance:   st.MinDistance.InexactFloat64(),
		BestWeekTotal: st.BestWeekTotal.InexactFloat64(),
		Streak:        st.Streak,
	}
	if st.BestWeekStart != nil {
		dto.BestWeekStart = st.BestWeekStart.Format(domain.DateLayout)
	}
	return dto
}

type scheduleDayDTO struct {
	ID      int64    `json:"id"`
	Date    string   `json:"date"`
	Target  float64  `json:"target"`
	Logged  *float64 `json:"logged,omitempty"`
	IsToday bool     `json:"is_today"`
	IsPast  bool     `json:"is_past"`
}

type planDTO struct {
	Schedule      []scheduleDayDTO `json:"schedule"`
	TotalRun      float64          `json:"total_run"`
	TotalPlanned  float64          `json:"total_planned"`
	RaceDay       string           `json:"race_day,omitempty"`
	DaysRemaining int              `json:"days_remaining"`
}

func toPlanDTO(p app.PlanOverview) planDTO {
	dto := planDTO{
		Schedule:      make([]scheduleDayDTO, 0, len(p.Schedule)),
		TotalRun:      p.TotalRun.InexactFloat64(),
		TotalPlanned:  p.TotalPlanned.InexactFloat64(),
		DaysRemaining: p.DaysRemaining,
	}
	if p.RaceDay != nil {
		dto.RaceDay = p.RaceDay.Format(domain.DateLayout)
	}
	for _, d := range p.Schedule {
		dto.Schedule = append(dto.Schedule, scheduleDayDTO{
			ID:      d.Entry.ID,
			Date:    d.Entry.Date.Format(domain.DateLayout),
			Target:  d.Entry.Target.InexactFloat64(),
			Logged:  floatPtr(d.Logged),
			IsToday: d.IsToday,
			IsPast:  d.IsPast,
		})
	}
	return dto
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func dayString(t time.Time) string {
	return domain.DateOf(t).Format(domain.DateLayout)
}

// writeServiceError maps application errors onto HTTP statuses: bad input
// is the caller's fault, a missing connection is a conflict, and remote
// failures surface as a bad gateway.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrValidation):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, app.ErrNotConnected):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrStravaAuth):
		writeError(w, http.StatusBadGateway, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
