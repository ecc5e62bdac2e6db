package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lox/aqidash/internal/models"
)

// fakeGateway records every call. hook, if set, runs before each call
// returns and may block or fail it.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string][]models.FilterPayload
	hook  func(ctx context.Context, name string, p models.FilterPayload) error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{calls: make(map[string][]models.FilterPayload)}
}

func (f *fakeGateway) setHook(h func(ctx context.Context, name string, p models.FilterPayload) error) {
	f.mu.Lock()
	f.hook = h
	f.mu.Unlock()
}

func (f *fakeGateway) record(ctx context.Context, name string, p models.FilterPayload) error {
	f.mu.Lock()
	f.calls[name] = append(f.calls[name], p.Clone())
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		return hook(ctx, name, p)
	}
	return nil
}

func (f *fakeGateway) callsTo(name string) []models.FilterPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.FilterPayload{}, f.calls[name]...)
}

func (f *fakeGateway) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c)
	}
	return n
}

func horizonOf(p models.FilterPayload) float64 {
	if p.PredictType == nil {
		return 0
	}
	return float64(*p.PredictType)
}

func (f *fakeGateway) SumGases(ctx context.Context, p models.FilterPayload) (models.GasesMetric, error) {
	return models.GasesMetric{Sum: 12}, f.record(ctx, "SumGases", p)
}

func (f *fakeGateway) AvgAQI(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error) {
	if err := f.record(ctx, "AvgAQI", p); err != nil {
		return models.AQIMetric{}, err
	}
	return models.AQIMetric{Mean: 55}, nil
}

func (f *fakeGateway) AvgPM25(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error) {
	return models.AQIMetric{Mean: 9}, f.record(ctx, "AvgPM25", p)
}

func (f *fakeGateway) AvgPM10(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error) {
	return models.AQIMetric{Mean: 20}, f.record(ctx, "AvgPM10", p)
}

func (f *fakeGateway) MapAQI(ctx context.Context, p models.FilterPayload) ([]models.MapEntry, error) {
	return []models.MapEntry{{StateName: "California", MeanValue: 160, Category: "Unhealthy"}}, f.record(ctx, "MapAQI", p)
}

func (f *fakeGateway) ContributionGases(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error) {
	return []models.CategoryShare{{Name: "NO2", Value: 60}}, f.record(ctx, "ContributionGases", p)
}

func (f *fakeGateway) ContributionAQI(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error) {
	return []models.CategoryShare{{Name: "Good", Value: 70}}, f.record(ctx, "ContributionAQI", p)
}

func (f *fakeGateway) ContributionPM25(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error) {
	return []models.CategoryShare{{Name: "Good", Value: 80}}, f.record(ctx, "ContributionPM25", p)
}

func (f *fakeGateway) ContributionPM10(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error) {
	return nil, f.record(ctx, "ContributionPM10", p)
}

func (f *fakeGateway) TimeGases(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error) {
	return []models.TimeSeriesPoint{{Name: "2024-01"}}, f.record(ctx, "TimeGases", p)
}

func (f *fakeGateway) TimePM(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error) {
	return []models.TimeSeriesPoint{{Name: "2024-01"}}, f.record(ctx, "TimePM", p)
}

func (f *fakeGateway) TimeAQI(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error) {
	if err := f.record(ctx, "TimeAQI", p); err != nil {
		return nil, err
	}
	h := horizonOf(p)
	return []models.TimeSeriesPoint{{Name: "2025-01", Predicted: &h}}, nil
}

func (f *fakeGateway) Recommendations(ctx context.Context, p models.FilterPayload) (models.RecommendationSet, error) {
	return models.RecommendationSet{Response: []models.Recommendation{{Title: "Stay inside"}}}, f.record(ctx, "Recommendations", p)
}

func (f *fakeGateway) TimeSeriesRecommendations(ctx context.Context, p models.FilterPayload) (models.RecommendationSet, error) {
	return models.RecommendationSet{ContextUsed: "forecast"}, f.record(ctx, "TimeSeriesRecommendations", p)
}

func (f *fakeGateway) YoYComparison(ctx context.Context, p models.FilterPayload) (models.YoYComparison, error) {
	return models.YoYComparison{Current: models.YearMetrics{Year: 2024}}, f.record(ctx, "YoYComparison", p)
}

var allOperations = []string{
	"SumGases", "AvgAQI", "AvgPM25", "AvgPM10", "MapAQI",
	"ContributionGases", "ContributionAQI", "ContributionPM25", "ContributionPM10",
	"TimeGases", "TimePM", "TimeAQI",
	"Recommendations", "TimeSeriesRecommendations", "YoYComparison",
}

func testPayload() models.FilterPayload {
	return models.FilterPayload{
		StartMonth: "1",
		StartYear:  "2020",
		EndMonth:   "12",
		EndYear:    "2024",
		States:     []string{"California", "Texas"},
	}
}

func TestApplyFilters_CallsEveryOperationOnce(t *testing.T) {
	gw := newFakeGateway()
	o := NewOrchestrator(gw)

	r := o.ApplyFilters(context.Background(), testPayload())
	r.Wait()

	if len(r.Keys) != len(Keys) {
		t.Errorf("round covered %d keys, want %d", len(r.Keys), len(Keys))
	}
	if gw.totalCalls() != len(allOperations) {
		t.Errorf("total calls = %d, want %d", gw.totalCalls(), len(allOperations))
	}

	for _, name := range allOperations {
		calls := gw.callsTo(name)
		if len(calls) != 1 {
			t.Errorf("%s called %d times, want 1", name, len(calls))
			continue
		}
		p := calls[0]
		if p.StartYear != "2020" || p.EndMonth != "12" || len(p.States) != 2 {
			t.Errorf("%s payload = %+v", name, p)
		}
		switch name {
		case "TimeAQI", "TimeSeriesRecommendations":
			if p.PredictType == nil || *p.PredictType != DefaultHorizon {
				t.Errorf("%s predict_type = %v, want %d", name, p.PredictType, DefaultHorizon)
			}
		default:
			if p.PredictType != nil {
				t.Errorf("%s predict_type = %d, want none", name, *p.PredictType)
			}
		}
	}

	bag := o.Snapshot()
	if bag.Loading() {
		t.Error("bag still loading after round settled")
	}
	for _, s := range bag.Slots() {
		if s.Status != StatusReady {
			t.Errorf("%s status = %s, want ready", s.Key, s.Status)
		}
		if s.Value == nil {
			t.Errorf("%s has no value", s.Key)
		}
		if s.Applied != r.ID {
			t.Errorf("%s applied round = %d, want %d", s.Key, s.Applied, r.ID)
		}
	}
	if got := bag.Contribution(KeyPiePM10); got == nil || len(got) != 0 {
		t.Errorf("nil list should settle as empty, got %#v", got)
	}
}

func TestApplyFilters_ClearsPredictTypeFromCaller(t *testing.T) {
	gw := newFakeGateway()
	o := NewOrchestrator(gw)

	o.ApplyFilters(context.Background(), testPayload().WithPrediction(5)).Wait()

	if p := gw.callsTo("AvgAQI")[0]; p.PredictType != nil {
		t.Errorf("AvgAQI predict_type = %d, want none", *p.PredictType)
	}
	if p := gw.callsTo("TimeAQI")[0]; *p.PredictType != DefaultHorizon {
		t.Errorf("TimeAQI predict_type = %d, want %d", *p.PredictType, DefaultHorizon)
	}
}

func TestApplyFilters_DoesNotBlockCaller(t *testing.T) {
	gw := newFakeGateway()
	release := make(chan struct{})
	gw.setHook(func(ctx context.Context, name string, p models.FilterPayload) error {
		<-release
		return nil
	})
	o := NewOrchestrator(gw)

	r := o.ApplyFilters(context.Background(), testPayload())
	bag := o.Snapshot()
	for _, s := range bag.Slots() {
		if s.Status != StatusLoading {
			t.Errorf("%s status = %s, want loading", s.Key, s.Status)
		}
	}
	close(release)
	r.Wait()
	if o.Loading() {
		t.Error("still loading after release")
	}
}

func TestApplyFilters_SlowKeyDoesNotBlockOthers(t *testing.T) {
	gw := newFakeGateway()
	release := make(chan struct{})
	gw.setHook(func(ctx context.Context, name string, p models.FilterPayload) error {
		if name == "TimeGases" {
			<-release
		}
		return nil
	})
	o := NewOrchestrator(gw)
	r := o.ApplyFilters(context.Background(), testPayload())

	deadline := time.Now().Add(2 * time.Second)
	for {
		bag := o.Snapshot()
		ready := 0
		for _, s := range bag.Slots() {
			if s.Status == StatusReady {
				ready++
			}
		}
		if ready == len(Keys)-1 {
			if s := bag.Slot(KeyTimeGases); s.Status != StatusLoading {
				t.Errorf("time_gases status = %s, want loading", s.Status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d slots ready while time_gases pending", ready)
		}
		time.Sleep(5 * time.Millisecond)
	}

	close(release)
	r.Wait()
	if s := o.Snapshot().Slot(KeyTimeGases); s.Status != StatusReady {
		t.Errorf("time_gases status = %s, want ready", s.Status)
	}
}

func TestPredict_TouchesOnlyForecastSlots(t *testing.T) {
	gw := newFakeGateway()
	o := NewOrchestrator(gw)
	o.ApplyFilters(context.Background(), testPayload()).Wait()
	before := o.Snapshot()

	r, err := o.Predict(context.Background(), testPayload(), 3)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	r.Wait()
	after := o.Snapshot()

	if gw.totalCalls() != len(allOperations)+2 {
		t.Errorf("total calls = %d, want %d", gw.totalCalls(), len(allOperations)+2)
	}
	for _, name := range []string{"TimeAQI", "TimeSeriesRecommendations"} {
		calls := gw.callsTo(name)
		if len(calls) != 2 || calls[1].PredictType == nil || *calls[1].PredictType != 3 {
			t.Errorf("%s calls = %+v", name, calls)
		}
	}

	for _, k := range Keys {
		b, a := before.Slot(k), after.Slot(k)
		if isForecastKey(k) {
			if a.Applied != r.ID {
				t.Errorf("%s applied = %d, want %d", k, a.Applied, r.ID)
			}
			continue
		}
		if a.Issued != b.Issued || a.Applied != b.Applied || !a.UpdatedAt.Equal(b.UpdatedAt) || a.Status != b.Status {
			t.Errorf("%s changed by predict: before %+v after %+v", k, b, a)
		}
	}
	if before.AvgAQI() != after.AvgAQI() {
		t.Error("avg_aqi value replaced by predict")
	}
	if before.YoYComparison() != after.YoYComparison() {
		t.Error("yoy_comparison value replaced by predict")
	}
	if got := *after.TimeSeries(KeyTimeAQI)[0].Predicted; got != 3 {
		t.Errorf("time_aqi horizon = %v, want 3", got)
	}
}

func TestPredict_RejectsNonPositiveHorizon(t *testing.T) {
	gw := newFakeGateway()
	o := NewOrchestrator(gw)

	for _, years := range []int{0, -1} {
		if _, err := o.Predict(context.Background(), testPayload(), years); err == nil {
			t.Errorf("Predict(%d) expected error", years)
		}
	}
	if gw.totalCalls() != 0 {
		t.Errorf("calls = %d, want 0", gw.totalCalls())
	}
}

func TestSettle_DiscardsStaleCompletion(t *testing.T) {
	gw := newFakeGateway()
	slow := make(chan struct{})
	gw.setHook(func(ctx context.Context, name string, p models.FilterPayload) error {
		if name == "TimeAQI" && horizonOf(p) == 3 {
			<-slow
		}
		return nil
	})
	o := NewOrchestrator(gw)

	r1, _ := o.Predict(context.Background(), testPayload(), 3)
	r2, _ := o.Predict(context.Background(), testPayload(), 5)
	r2.Wait()

	s := o.Snapshot().Slot(KeyTimeAQI)
	if s.Status != StatusReady || s.Applied != r2.ID {
		t.Fatalf("after newer round: %+v", s)
	}

	close(slow)
	r1.Wait()

	bag := o.Snapshot()
	s = bag.Slot(KeyTimeAQI)
	if s.Applied != r2.ID || s.Status != StatusReady {
		t.Errorf("stale completion applied: %+v", s)
	}
	if got := *bag.TimeSeries(KeyTimeAQI)[0].Predicted; got != 5 {
		t.Errorf("time_aqi horizon = %v, want 5", got)
	}
}

func TestSettle_StaysLoadingUntilLatestRound(t *testing.T) {
	gw := newFakeGateway()
	gates := map[float64]chan struct{}{3: make(chan struct{}), 5: make(chan struct{})}
	gw.setHook(func(ctx context.Context, name string, p models.FilterPayload) error {
		if g, ok := gates[horizonOf(p)]; ok {
			<-g
		}
		return nil
	})
	o := NewOrchestrator(gw)

	r1, _ := o.Predict(context.Background(), testPayload(), 3)
	r2, _ := o.Predict(context.Background(), testPayload(), 5)

	close(gates[3])
	r1.Wait()
	bag := o.Snapshot()
	if s := bag.Slot(KeyTimeAQI); s.Status != StatusLoading || s.Applied != r1.ID {
		t.Errorf("older round settled slot: %+v", s)
	}
	if got := *bag.TimeSeries(KeyTimeAQI)[0].Predicted; got != 3 {
		t.Errorf("interim horizon = %v, want 3", got)
	}

	close(gates[5])
	r2.Wait()
	bag = o.Snapshot()
	if s := bag.Slot(KeyTimeAQI); s.Status != StatusReady || s.Applied != r2.ID {
		t.Errorf("latest round not applied: %+v", s)
	}
}

func TestSettle_FailureKeepsPreviousValue(t *testing.T) {
	gw := newFakeGateway()
	o := NewOrchestrator(gw)
	o.ApplyFilters(context.Background(), testPayload()).Wait()
	prev := o.Snapshot().AvgAQI()

	boom := errors.New("Server error: 500")
	gw.setHook(func(ctx context.Context, name string, p models.FilterPayload) error {
		if name == "AvgAQI" {
			return boom
		}
		return nil
	})
	r := o.ApplyFilters(context.Background(), testPayload())
	r.Wait()

	bag := o.Snapshot()
	s := bag.Slot(KeyAvgAQI)
	if s.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", s.Status)
	}
	if !errors.Is(s.Err, boom) || s.Reason() != "Server error: 500" {
		t.Errorf("err = %v, reason = %q", s.Err, s.Reason())
	}
	if bag.AvgAQI() != prev || prev == nil {
		t.Errorf("value = %v, want previous %v", bag.AvgAQI(), prev)
	}
	if bag.Loading() {
		t.Error("failure left bag loading")
	}
	if s := bag.Slot(KeyAvgPM25); s.Status != StatusReady {
		t.Errorf("avg_pm25 status = %s, want ready", s.Status)
	}

	gw.setHook(nil)
	o.ApplyFilters(context.Background(), testPayload()).Wait()
	if s := o.Snapshot().Slot(KeyAvgAQI); s.Status != StatusReady || s.Err != nil {
		t.Errorf("recovered slot = %+v", s)
	}
}

func TestSettle_FailureOnFirstRoundLeavesNilValue(t *testing.T) {
	gw := newFakeGateway()
	gw.setHook(func(ctx context.Context, name string, p models.FilterPayload) error {
		if name == "MapAQI" {
			return errors.New("Network error: Unable to reach server")
		}
		return nil
	})
	o := NewOrchestrator(gw)
	o.ApplyFilters(context.Background(), testPayload()).Wait()

	bag := o.Snapshot()
	if bag.MapAQI() != nil {
		t.Errorf("map_aqi = %v, want nil", bag.MapAQI())
	}
	if s := bag.Slot(KeyMapAQI); s.Status != StatusFailed || s.Value != nil {
		t.Errorf("map_aqi slot = %+v", s)
	}
}

func TestOnUpdate_NotifiesEveryTransition(t *testing.T) {
	gw := newFakeGateway()
	o := NewOrchestrator(gw)

	var mu sync.Mutex
	counts := map[Status]int{}
	o.OnUpdate(func(s Slot) {
		// Snapshot takes the bag lock; this would deadlock if called under it.
		_ = o.Snapshot()
		mu.Lock()
		counts[s.Status]++
		mu.Unlock()
	})

	o.ApplyFilters(context.Background(), testPayload()).Wait()

	mu.Lock()
	defer mu.Unlock()
	if counts[StatusLoading] != len(Keys) || counts[StatusReady] != len(Keys) {
		t.Errorf("notifications = %v", counts)
	}
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusIdle:    "idle",
		StatusLoading: "loading",
		StatusReady:   "ready",
		StatusFailed:  "failed",
		Status(9):     "status(9)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
