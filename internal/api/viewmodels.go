package api

import (
	"time"

	"github.com/lox/aqidash/internal/dashboard"
	"github.com/lox/aqidash/internal/filters"
	"github.com/lox/aqidash/internal/models"
	"github.com/lox/aqidash/internal/views"
)

// DashboardView is everything the page and the JSON endpoint render.
type DashboardView struct {
	Filters         FiltersView               `json:"filters"`
	Horizon         int                       `json:"horizon"`
	Loading         bool                      `json:"loading"`
	Slots           []SlotView                `json:"slots"`
	Hero            views.HeroKPI             `json:"hero"`
	Alerts          views.Banner              `json:"alerts"`
	Comparisons     []views.Comparison        `json:"comparisons"`
	Recommendations *models.RecommendationSet `json:"recommendations"`
	Forecast        *models.RecommendationSet `json:"forecast_recommendations"`
	Data            map[dashboard.Key]any     `json:"data"`
	Presets         []PresetView              `json:"-"`
	HorizonOptions  []int                     `json:"-"`
}

type FiltersView struct {
	States        []string   `json:"states"`
	Start         string     `json:"start"`
	End           string     `json:"end"`
	Preset        string     `json:"preset"`
	LastAppliedAt *time.Time `json:"last_applied_at,omitempty"`
}

type SlotView struct {
	Key       dashboard.Key `json:"key"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	Round     uint64        `json:"round"`
	UpdatedAt *time.Time    `json:"updated_at,omitempty"`
}

type PresetView struct {
	Value  string
	Label  string
	Active bool
}

// HorizonOptions are the forecast horizons offered to users, in years.
var HorizonOptions = []int{1, 3, 5}

func (s *Server) buildView(expandAlerts bool) DashboardView {
	fv := s.dash.Filters.Values()
	bag := s.dash.Data.Snapshot()

	v := DashboardView{
		Filters: FiltersView{
			States:        fv.States,
			Start:         fv.Range.Start.Format("2006-01-02"),
			End:           fv.Range.End.Format("2006-01-02"),
			Preset:        string(fv.ActivePreset),
			LastAppliedAt: fv.LastAppliedAt,
		},
		Horizon:         s.dash.Horizon(),
		Loading:         bag.Loading(),
		Hero:            views.Hero(bag),
		Alerts:          views.AlertBanner(views.Alerts(bag.MapAQI()), expandAlerts),
		Comparisons:     views.Comparisons(bag.YoYComparison()),
		Recommendations: bag.Recommendations(),
		Forecast:        bag.TimeSeriesRecommendations(),
		Data:            make(map[dashboard.Key]any, len(dashboard.Keys)),
		HorizonOptions:  HorizonOptions,
	}

	for _, sl := range bag.Slots() {
		sv := SlotView{
			Key:    sl.Key,
			Status: sl.Status.String(),
			Error:  sl.Reason(),
			Round:  sl.Applied,
		}
		if !sl.UpdatedAt.IsZero() {
			t := sl.UpdatedAt
			sv.UpdatedAt = &t
		}
		v.Slots = append(v.Slots, sv)
		if sl.Value != nil {
			v.Data[sl.Key] = sl.Value
		}
	}

	for _, p := range filters.Presets {
		v.Presets = append(v.Presets, PresetView{
			Value:  string(p),
			Label:  p.Label(),
			Active: p == fv.ActivePreset,
		})
	}
	return v
}
