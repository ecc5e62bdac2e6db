package views

import (
	"testing"

	"github.com/lox/aqidash/internal/aqi"
	"github.com/lox/aqidash/internal/dashboard"
	"github.com/lox/aqidash/internal/models"
)

func TestAlerts(t *testing.T) {
	entries := []models.MapEntry{
		{StateName: "Alabama", MeanValue: 42, Category: "Good"},
		{StateName: "California", MeanValue: 160, Category: "Unhealthy"},
		{StateName: "Texas", MeanValue: 120, Category: "Unhealthy for Sensitive"},
		{StateName: "Arizona", MeanValue: 160, Category: "Unhealthy"},
		{StateName: "Utah", MeanValue: 99, Category: "Moderate"},
		{StateName: "Nevada", MeanValue: 320, Category: "mystery"},
	}

	got := Alerts(entries)
	want := []string{"Nevada", "California", "Arizona", "Texas"}
	if len(got) != len(want) {
		t.Fatalf("Alerts() returned %d, want %d: %+v", len(got), len(want), got)
	}
	for i, name := range want {
		if got[i].State != name {
			t.Errorf("alert[%d] = %s, want %s", i, got[i].State, name)
		}
	}
	if got[0].Category != aqi.Hazardous {
		t.Errorf("unknown label should classify from value, got %s", got[0].Category)
	}
}

func TestAlerts_Empty(t *testing.T) {
	if got := Alerts(nil); len(got) != 0 {
		t.Errorf("Alerts(nil) = %v", got)
	}
}

func TestAlertBanner(t *testing.T) {
	alerts := []Alert{
		{State: "A", Value: 250, Category: aqi.VeryUnhealthy},
		{State: "B", Value: 180, Category: aqi.Unhealthy},
		{State: "C", Value: 170, Category: aqi.Unhealthy},
		{State: "D", Value: 130, Category: aqi.UnhealthySensitive},
		{State: "E", Value: 110, Category: aqi.UnhealthySensitive},
	}

	tests := []struct {
		name     string
		alerts   []Alert
		expanded bool
		visible  int
		hidden   int
		more     string
		allClear bool
	}{
		{"collapsed", alerts, false, 3, 2, "+2 more", false},
		{"expanded", alerts, true, 5, 0, "", false},
		{"exactly limit", alerts[:3], false, 3, 0, "", false},
		{"empty", nil, false, 0, 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := AlertBanner(tt.alerts, tt.expanded)
			if len(b.Visible) != tt.visible || b.Hidden != tt.hidden || b.AllClear != tt.allClear {
				t.Errorf("banner = %+v", b)
			}
			if b.MoreLabel() != tt.more {
				t.Errorf("MoreLabel() = %q, want %q", b.MoreLabel(), tt.more)
			}
		})
	}

	if b := AlertBanner(alerts, false); b.Worst != aqi.VeryUnhealthy {
		t.Errorf("Worst = %s", b.Worst)
	}
}

func TestFormatChange(t *testing.T) {
	tests := []struct {
		current, previous float64
		want              string
	}{
		{70, 50, "+40.0%"},
		{50, 100, "-50.0%"},
		{50, 50, "0.0%"},
		{10, 0, "N/A"},
		{0, 0, "N/A"},
		{9.5, 10, "-5.0%"},
		{1, 3, "-66.7%"},
	}
	for _, tt := range tests {
		if got := FormatChange(tt.current, tt.previous); got != tt.want {
			t.Errorf("FormatChange(%v, %v) = %q, want %q", tt.current, tt.previous, got, tt.want)
		}
	}
}

func TestChangeTone(t *testing.T) {
	tests := []struct {
		name          string
		cur, prev     float64
		lowerIsBetter bool
		want          Tone
	}{
		{"pollution down", 40, 50, true, ToneFavorable},
		{"pollution up", 60, 50, true, ToneUnfavorable},
		{"count up", 60, 50, false, ToneFavorable},
		{"count down", 40, 50, false, ToneUnfavorable},
		{"flat", 50, 50, true, ToneNeutral},
		{"no baseline", 50, 0, true, ToneNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChangeTone(tt.cur, tt.prev, tt.lowerIsBetter); got != tt.want {
				t.Errorf("ChangeTone() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestComparisons(t *testing.T) {
	yoy := &models.YoYComparison{
		Current:  models.YearMetrics{Year: 2024, AQI: 70, PM25: 9, PM10: 20, Gases: 3},
		Previous: models.YearMetrics{Year: 2023, AQI: 50, PM25: 10, PM10: 20, Gases: 0},
	}
	rows := Comparisons(yoy)
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}

	want := []struct {
		label, unit, change string
		tone                Tone
	}{
		{"AQI (2024 vs 2023)", "", "+40.0%", ToneUnfavorable},
		{"PM2.5 (2024 vs 2023)", "μg/m³", "-10.0%", ToneFavorable},
		{"PM10 (2024 vs 2023)", "μg/m³", "0.0%", ToneNeutral},
		{"Gases (2024 vs 2023)", "ppb", "N/A", ToneNeutral},
	}
	for i, w := range want {
		r := rows[i]
		if r.Label != w.label || r.Unit != w.unit || r.Change != w.change || r.Tone != w.tone {
			t.Errorf("row %d = %+v, want %+v", i, r, w)
		}
	}

	if Comparisons(nil) != nil {
		t.Error("Comparisons(nil) should be nil")
	}
}

func TestCompareWith_CustomDirection(t *testing.T) {
	yoy := &models.YoYComparison{
		Current:  models.YearMetrics{Year: 2024, AQI: 60},
		Previous: models.YearMetrics{Year: 2023, AQI: 50},
	}
	metrics := []Metric{{Name: "Good days", LowerIsBetter: false, value: func(m models.YearMetrics) float64 { return m.AQI }}}
	rows := CompareWith(yoy, metrics)
	if rows[0].Tone != ToneFavorable {
		t.Errorf("tone = %s, want favorable", rows[0].Tone)
	}
}

func TestHero(t *testing.T) {
	bag := dashboard.NewBag(map[dashboard.Key]any{
		dashboard.KeyAvgAQI:   &models.AQIMetric{Mean: 155},
		dashboard.KeyAvgPM25:  &models.AQIMetric{Mean: 12.5},
		dashboard.KeySumGases: &models.GasesMetric{Sum: 48},
	})

	h := Hero(bag)
	if !h.Ready || h.AvgAQI == nil || *h.AvgAQI != 155 {
		t.Fatalf("hero = %+v", h)
	}
	if h.Category != aqi.Unhealthy || h.Label != "Unhealthy" || h.Color != "#ef4444" {
		t.Errorf("category = %s %s %s", h.Category, h.Label, h.Color)
	}
	if h.Priority != aqi.PriorityHigh || !h.Dangerous {
		t.Errorf("priority = %s dangerous = %v", h.Priority, h.Dangerous)
	}
	if h.AvgPM10 != nil {
		t.Errorf("AvgPM10 = %v, want nil", *h.AvgPM10)
	}
	if h.SumGases == nil || *h.SumGases != 48 {
		t.Errorf("SumGases = %v", h.SumGases)
	}
}

func TestHero_NotLoaded(t *testing.T) {
	h := Hero(dashboard.NewBag(nil))
	if h.Ready || h.AvgAQI != nil {
		t.Errorf("hero = %+v", h)
	}
}
