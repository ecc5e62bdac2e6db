package models

// FilterPayload is the request body shared by every metric endpoint.
type FilterPayload struct {
	StartMonth  string   `json:"start_month"`
	StartYear   string   `json:"start_year"`
	EndMonth    string   `json:"end_month"`
	EndYear     string   `json:"end_year"`
	States      []string `json:"states"`
	PredictType *int     `json:"predict_type,omitempty"`
}

// WithPrediction returns a copy of the payload carrying the forecast horizon.
func (p FilterPayload) WithPrediction(years int) FilterPayload {
	out := p.Clone()
	out.PredictType = &years
	return out
}

// Historical returns a copy of the payload without a forecast horizon.
func (p FilterPayload) Historical() FilterPayload {
	out := p.Clone()
	out.PredictType = nil
	return out
}

// Clone deep-copies the payload so callers can't share the states slice.
func (p FilterPayload) Clone() FilterPayload {
	out := p
	out.States = append([]string{}, p.States...)
	if p.PredictType != nil {
		v := *p.PredictType
		out.PredictType = &v
	}
	return out
}

// StatesPayload is the body of the year-over-year endpoint.
type StatesPayload struct {
	States []string `json:"states"`
}

// Envelope wraps every backend response.
type Envelope[T any] struct {
	Data   *T     `json:"data"`
	Status string `json:"status"`
}

type AQIMetric struct {
	Mean float64  `json:"Mean"`
	Min  *float64 `json:"Min,omitempty"`
	Max  *float64 `json:"Max,omitempty"`
}

type GasesMetric struct {
	Sum float64 `json:"Sum"`
}

// CategoryShare is one slice of a contributor breakdown.
type CategoryShare struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Fill  string  `json:"fill,omitempty"`
}

// TimeSeriesPoint is one period of a time series. Name holds the period label.
type TimeSeriesPoint struct {
	Name      string      `json:"name"`
	Date      *string     `json:"Date,omitempty"`
	History   *float64    `json:"History,omitempty"`
	Predicted *float64    `json:"Predicted,omitempty"`
	CIRange   *[2]float64 `json:"CI_range,omitempty"`
	NO2Mean   *float64    `json:"NO2 Mean,omitempty"`
	COMean    *float64    `json:"CO Mean,omitempty"`
	PM25Mean  *float64    `json:"PM2.5 Mean,omitempty"`
	PM10Mean  *float64    `json:"PM10 Mean,omitempty"`
}

// MapEntry is one state's mean AQI for the choropleth.
type MapEntry struct {
	StateName string  `json:"State Name"`
	MeanValue float64 `json:"Mean AQI Value"`
	Category  string  `json:"AQI Category"`
}

type Recommendation struct {
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Category    string `json:"Category,omitempty"`
}

type RecommendationSet struct {
	ContextUsed string           `json:"context_used"`
	Response    []Recommendation `json:"response"`
}

type YearMetrics struct {
	Year  int     `json:"Year"`
	AQI   float64 `json:"AQI"`
	PM25  float64 `json:"PM25"`
	PM10  float64 `json:"PM10"`
	Gases float64 `json:"Gases"`
}

type YoYComparison struct {
	Current  YearMetrics `json:"current"`
	Previous YearMetrics `json:"previous"`
}

type MonthYear struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// DateBounds is the span of data the backend holds.
type DateBounds struct {
	Min MonthYear `json:"min_date"`
	Max MonthYear `json:"max_date"`
}
