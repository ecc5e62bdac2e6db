package dashboard

import (
	"context"

	"github.com/lox/aqidash/internal/models"
)

// Key identifies one slot of the dashboard data bag.
type Key string

const (
	KeyTimeGases                 Key = "time_gases"
	KeyTimeAQI                   Key = "time_aqi"
	KeyTimePM                    Key = "time_pm"
	KeyPieGases                  Key = "pie_gases"
	KeyPiePM25                   Key = "pie_pm25"
	KeyPiePM10                   Key = "pie_pm10"
	KeyPieAQI                    Key = "pie_aqi"
	KeySumGases                  Key = "sum_gases"
	KeyAvgAQI                    Key = "avg_aqi"
	KeyAvgPM25                   Key = "avg_pm25"
	KeyAvgPM10                   Key = "avg_pm10"
	KeyMapAQI                    Key = "map_aqi"
	KeyRecommendations           Key = "recommendations"
	KeyTimeSeriesRecommendations Key = "time_series_recommendations"
	KeyYoYComparison             Key = "yoy_comparison"
)

// Keys lists every slot in display order.
var Keys = []Key{
	KeyTimeGases, KeyTimeAQI, KeyTimePM,
	KeyPieGases, KeyPiePM25, KeyPiePM10, KeyPieAQI,
	KeySumGases, KeyAvgAQI, KeyAvgPM25, KeyAvgPM10,
	KeyMapAQI, KeyRecommendations, KeyTimeSeriesRecommendations, KeyYoYComparison,
}

// ForecastKeys are the slots that carry a prediction horizon.
var ForecastKeys = []Key{KeyTimeAQI, KeyTimeSeriesRecommendations}

// DefaultHorizon is the prediction horizon in years sent on a full apply.
const DefaultHorizon = 1

func isForecastKey(k Key) bool {
	return k == KeyTimeAQI || k == KeyTimeSeriesRecommendations
}

// Gateway is the subset of the remote API the orchestrator depends on.
type Gateway interface {
	SumGases(ctx context.Context, p models.FilterPayload) (models.GasesMetric, error)
	AvgAQI(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error)
	AvgPM25(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error)
	AvgPM10(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error)
	MapAQI(ctx context.Context, p models.FilterPayload) ([]models.MapEntry, error)
	ContributionGases(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error)
	ContributionAQI(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error)
	ContributionPM25(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error)
	ContributionPM10(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error)
	TimeGases(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error)
	TimePM(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error)
	TimeAQI(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error)
	Recommendations(ctx context.Context, p models.FilterPayload) (models.RecommendationSet, error)
	TimeSeriesRecommendations(ctx context.Context, p models.FilterPayload) (models.RecommendationSet, error)
	YoYComparison(ctx context.Context, p models.FilterPayload) (models.YoYComparison, error)
}

type fetchFunc func(ctx context.Context, gw Gateway, p models.FilterPayload) (any, error)

// ptr adapts a struct-returning call so the slot holds a pointer. Slots
// that are not refetched keep the exact same value across rounds.
func ptr[T any](fn func(Gateway, context.Context, models.FilterPayload) (T, error)) fetchFunc {
	return func(ctx context.Context, gw Gateway, p models.FilterPayload) (any, error) {
		v, err := fn(gw, ctx, p)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
}

func list[T any](fn func(Gateway, context.Context, models.FilterPayload) ([]T, error)) fetchFunc {
	return func(ctx context.Context, gw Gateway, p models.FilterPayload) (any, error) {
		v, err := fn(gw, ctx, p)
		if err != nil {
			return nil, err
		}
		if v == nil {
			v = []T{}
		}
		return v, nil
	}
}

var fetchers = map[Key]fetchFunc{
	KeyTimeGases:                 list(Gateway.TimeGases),
	KeyTimeAQI:                   list(Gateway.TimeAQI),
	KeyTimePM:                    list(Gateway.TimePM),
	KeyPieGases:                  list(Gateway.ContributionGases),
	KeyPiePM25:                   list(Gateway.ContributionPM25),
	KeyPiePM10:                   list(Gateway.ContributionPM10),
	KeyPieAQI:                    list(Gateway.ContributionAQI),
	KeySumGases:                  ptr(Gateway.SumGases),
	KeyAvgAQI:                    ptr(Gateway.AvgAQI),
	KeyAvgPM25:                   ptr(Gateway.AvgPM25),
	KeyAvgPM10:                   ptr(Gateway.AvgPM10),
	KeyMapAQI:                    list(Gateway.MapAQI),
	KeyRecommendations:           ptr(Gateway.Recommendations),
	KeyTimeSeriesRecommendations: ptr(Gateway.TimeSeriesRecommendations),
	KeyYoYComparison:             ptr(Gateway.YoYComparison),
}
