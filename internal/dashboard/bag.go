package dashboard

import "github.com/lox/aqidash/internal/models"

// Bag is an immutable view of every slot at one instant.
type Bag struct {
	slots map[Key]Slot
}

// Slot returns the slot for k.
func (b Bag) Slot(k Key) Slot {
	if s, ok := b.slots[k]; ok {
		return s
	}
	return Slot{Key: k}
}

// Slots returns every slot in display order.
func (b Bag) Slots() []Slot {
	out := make([]Slot, 0, len(Keys))
	for _, k := range Keys {
		out = append(out, b.Slot(k))
	}
	return out
}

// Loading reports whether any slot is awaiting a response.
func (b Bag) Loading() bool {
	for _, s := range b.slots {
		if s.Status == StatusLoading {
			return true
		}
	}
	return false
}

func value[T any](b Bag, k Key) (T, bool) {
	v, ok := b.Slot(k).Value.(T)
	return v, ok
}

func (b Bag) AvgAQI() *models.AQIMetric {
	v, _ := value[*models.AQIMetric](b, KeyAvgAQI)
	return v
}

func (b Bag) AvgPM25() *models.AQIMetric {
	v, _ := value[*models.AQIMetric](b, KeyAvgPM25)
	return v
}

func (b Bag) AvgPM10() *models.AQIMetric {
	v, _ := value[*models.AQIMetric](b, KeyAvgPM10)
	return v
}

func (b Bag) SumGases() *models.GasesMetric {
	v, _ := value[*models.GasesMetric](b, KeySumGases)
	return v
}

func (b Bag) MapAQI() []models.MapEntry {
	v, _ := value[[]models.MapEntry](b, KeyMapAQI)
	return v
}

// Contribution returns the breakdown held by one of the pie slots.
func (b Bag) Contribution(k Key) []models.CategoryShare {
	v, _ := value[[]models.CategoryShare](b, k)
	return v
}

// TimeSeries returns the points held by one of the time slots.
func (b Bag) TimeSeries(k Key) []models.TimeSeriesPoint {
	v, _ := value[[]models.TimeSeriesPoint](b, k)
	return v
}

func (b Bag) Recommendations() *models.RecommendationSet {
	v, _ := value[*models.RecommendationSet](b, KeyRecommendations)
	return v
}

func (b Bag) TimeSeriesRecommendations() *models.RecommendationSet {
	v, _ := value[*models.RecommendationSet](b, KeyTimeSeriesRecommendations)
	return v
}

func (b Bag) YoYComparison() *models.YoYComparison {
	v, _ := value[*models.YoYComparison](b, KeyYoYComparison)
	return v
}

// NewBag builds a bag whose given slots are ready with the supplied values.
// Struct results must be pointers, matching what the orchestrator stores.
func NewBag(values map[Key]any) Bag {
	b := Bag{slots: make(map[Key]Slot, len(Keys))}
	for _, k := range Keys {
		s := Slot{Key: k}
		if v, ok := values[k]; ok && v != nil {
			s.Value = v
			s.Status = StatusReady
		}
		b.slots[k] = s
	}
	return b
}
