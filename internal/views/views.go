package views

import (
	"fmt"
	"sort"

	"github.com/lox/aqidash/internal/aqi"
	"github.com/lox/aqidash/internal/dashboard"
	"github.com/lox/aqidash/internal/models"
)

// BannerLimit is how many alerts the banner shows before collapsing.
const BannerLimit = 3

// Alert is a state whose mean AQI is at or above the sensitive-groups band.
type Alert struct {
	State    string
	Value    float64
	Category aqi.Category
}

// Alerts filters the map breakdown to unhealthy states, worst first.
// Ties keep the backend's order.
func Alerts(entries []models.MapEntry) []Alert {
	var out []Alert
	for _, e := range entries {
		cat, ok := aqi.ParseCategory(e.Category)
		if !ok {
			cat = aqi.Classify(e.MeanValue)
		}
		if !cat.AtLeast(aqi.UnhealthySensitive) {
			continue
		}
		out = append(out, Alert{State: e.StateName, Value: e.MeanValue, Category: cat})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Value > out[j].Value
	})
	return out
}

// Banner is what the alert banner renders.
type Banner struct {
	Visible  []Alert
	Hidden   int
	Total    int
	AllClear bool
	Worst    aqi.Category
}

// MoreLabel is the "+N more" affordance, or "" when nothing is hidden.
func (b Banner) MoreLabel() string {
	if b.Hidden == 0 {
		return ""
	}
	return fmt.Sprintf("+%d more", b.Hidden)
}

// AlertBanner shows the top alerts, or all of them when expanded.
func AlertBanner(alerts []Alert, expanded bool) Banner {
	b := Banner{Total: len(alerts), AllClear: len(alerts) == 0}
	for _, a := range alerts {
		if a.Category.AtLeast(b.Worst) {
			b.Worst = a.Category
		}
	}
	if expanded || len(alerts) <= BannerLimit {
		b.Visible = alerts
		return b
	}
	b.Visible = alerts[:BannerLimit]
	b.Hidden = len(alerts) - BannerLimit
	return b
}

// FormatChange renders the percentage change from previous to current with
// an explicit sign. A zero baseline yields "N/A".
func FormatChange(current, previous float64) string {
	if previous == 0 {
		return "N/A"
	}
	pct := (current - previous) / previous * 100
	if pct > 0 {
		return fmt.Sprintf("+%.1f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// Tone is the trend coloring for a change.
type Tone string

const (
	ToneNeutral     Tone = "neutral"
	ToneFavorable   Tone = "favorable"
	ToneUnfavorable Tone = "unfavorable"
)

// ChangeTone decides whether a move is good news. For pollution metrics
// lowerIsBetter is true, so a decrease is favorable.
func ChangeTone(current, previous float64, lowerIsBetter bool) Tone {
	if previous == 0 || current == previous {
		return ToneNeutral
	}
	up := current > previous
	if up != lowerIsBetter {
		return ToneFavorable
	}
	return ToneUnfavorable
}

// Metric describes one row of the year-over-year table.
type Metric struct {
	Name          string
	Unit          string
	LowerIsBetter bool
	value         func(models.YearMetrics) float64
}

// ComparisonMetrics are the rows shown in the year-over-year table.
var ComparisonMetrics = []Metric{
	{Name: "AQI", Unit: "", LowerIsBetter: true, value: func(m models.YearMetrics) float64 { return m.AQI }},
	{Name: "PM2.5", Unit: "μg/m³", LowerIsBetter: true, value: func(m models.YearMetrics) float64 { return m.PM25 }},
	{Name: "PM10", Unit: "μg/m³", LowerIsBetter: true, value: func(m models.YearMetrics) float64 { return m.PM10 }},
	{Name: "Gases", Unit: "ppb", LowerIsBetter: true, value: func(m models.YearMetrics) float64 { return m.Gases }},
}

// Comparison is one computed row of the year-over-year table.
type Comparison struct {
	Label    string
	Unit     string
	Current  float64
	Previous float64
	Change   string
	Tone     Tone
}

// Comparisons builds the year-over-year rows using ComparisonMetrics.
func Comparisons(yoy *models.YoYComparison) []Comparison {
	return CompareWith(yoy, ComparisonMetrics)
}

// CompareWith builds year-over-year rows for a custom metric set.
func CompareWith(yoy *models.YoYComparison, metrics []Metric) []Comparison {
	if yoy == nil {
		return nil
	}
	out := make([]Comparison, 0, len(metrics))
	for _, m := range metrics {
		cur, prev := m.value(yoy.Current), m.value(yoy.Previous)
		out = append(out, Comparison{
			Label:    fmt.Sprintf("%s (%d vs %d)", m.Name, yoy.Current.Year, yoy.Previous.Year),
			Unit:     m.Unit,
			Current:  cur,
			Previous: prev,
			Change:   FormatChange(cur, prev),
			Tone:     ChangeTone(cur, prev, m.LowerIsBetter),
		})
	}
	return out
}

// HeroKPI is the headline card.
type HeroKPI struct {
	AvgAQI    *float64
	AvgPM25   *float64
	AvgPM10   *float64
	SumGases  *float64
	Category  aqi.Category
	Label     string
	Color     string
	Priority  aqi.Priority
	Dangerous bool
	Ready     bool
}

// Hero summarises the averages held in the bag. Ready is false until the
// average AQI has loaded.
func Hero(bag dashboard.Bag) HeroKPI {
	var h HeroKPI
	if m := bag.AvgAQI(); m != nil {
		v := m.Mean
		h.AvgAQI = &v
		h.Ready = true
		h.Category = aqi.Classify(v)
		h.Dangerous = aqi.IsDangerous(v)
	}
	if m := bag.AvgPM25(); m != nil {
		v := m.Mean
		h.AvgPM25 = &v
	}
	if m := bag.AvgPM10(); m != nil {
		v := m.Mean
		h.AvgPM10 = &v
	}
	if m := bag.SumGases(); m != nil {
		v := m.Sum
		h.SumGases = &v
	}
	h.Label = h.Category.String()
	h.Color = h.Category.Color()
	h.Priority = h.Category.Priority()
	return h
}
