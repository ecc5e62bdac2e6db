package gateway

import (
	"context"
	"net/http"

	"github.com/lox/aqidash/internal/models"
)

// Endpoint is a backend path plus a human name used in error messages.
type Endpoint struct {
	Path string
	Name string
}

var (
	EndpointStates                    = Endpoint{"/api/states", "states"}
	EndpointDateRange                 = Endpoint{"/api/date_range", "date range"}
	EndpointSumGases                  = Endpoint{"/api/sum_gases", "sum gases data"}
	EndpointAvgAQI                    = Endpoint{"/api/avg_aqi", "average AQI data"}
	EndpointAvgPM25                   = Endpoint{"/api/avg_pm25", "average PM2.5 data"}
	EndpointAvgPM10                   = Endpoint{"/api/avg_pm10", "average PM10 data"}
	EndpointMapAQI                    = Endpoint{"/api/map_aqi", "map AQI data"}
	EndpointContributionGases         = Endpoint{"/api/prec_gases", "gases contribution data"}
	EndpointContributionAQI           = Endpoint{"/api/prec_aqi", "AQI contribution data"}
	EndpointContributionPM25          = Endpoint{"/api/prec_p25", "PM2.5 contribution data"}
	EndpointContributionPM10          = Endpoint{"/api/prec_p10", "PM10 contribution data"}
	EndpointTimeGases                 = Endpoint{"/api/time_gases", "time series gases data"}
	EndpointTimePM                    = Endpoint{"/api/time_pm", "time series PM data"}
	EndpointTimeAQI                   = Endpoint{"/api/time_aqi", "time series AQI data"}
	EndpointRecommendations           = Endpoint{"/api/recommendations", "AQI recommendations data"}
	EndpointTimeSeriesRecommendations = Endpoint{"/api/time_recommendations", "time series recommendations data"}
	EndpointYoYComparison             = Endpoint{"/api/yoy_comparison", "year-over-year comparison data"}
)

func (c *Client) States(ctx context.Context) ([]string, error) {
	return call[[]string](ctx, c, http.MethodGet, EndpointStates, nil)
}

func (c *Client) DateRange(ctx context.Context) (models.DateBounds, error) {
	return call[models.DateBounds](ctx, c, http.MethodGet, EndpointDateRange, nil)
}

func (c *Client) SumGases(ctx context.Context, p models.FilterPayload) (models.GasesMetric, error) {
	return call[models.GasesMetric](ctx, c, http.MethodPost, EndpointSumGases, p)
}

func (c *Client) AvgAQI(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error) {
	return call[models.AQIMetric](ctx, c, http.MethodPost, EndpointAvgAQI, p)
}

func (c *Client) AvgPM25(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error) {
	return call[models.AQIMetric](ctx, c, http.MethodPost, EndpointAvgPM25, p)
}

func (c *Client) AvgPM10(ctx context.Context, p models.FilterPayload) (models.AQIMetric, error) {
	return call[models.AQIMetric](ctx, c, http.MethodPost, EndpointAvgPM10, p)
}

func (c *Client) MapAQI(ctx context.Context, p models.FilterPayload) ([]models.MapEntry, error) {
	return call[[]models.MapEntry](ctx, c, http.MethodPost, EndpointMapAQI, p)
}

func (c *Client) ContributionGases(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error) {
	return call[[]models.CategoryShare](ctx, c, http.MethodPost, EndpointContributionGases, p)
}

func (c *Client) ContributionAQI(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error) {
	return call[[]models.CategoryShare](ctx, c, http.MethodPost, EndpointContributionAQI, p)
}

func (c *Client) ContributionPM25(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error) {
	return call[[]models.CategoryShare](ctx, c, http.MethodPost, EndpointContributionPM25, p)
}

func (c *Client) ContributionPM10(ctx context.Context, p models.FilterPayload) ([]models.CategoryShare, error) {
	return call[[]models.CategoryShare](ctx, c, http.MethodPost, EndpointContributionPM10, p)
}

func (c *Client) TimeGases(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error) {
	return call[[]models.TimeSeriesPoint](ctx, c, http.MethodPost, EndpointTimeGases, p)
}

func (c *Client) TimePM(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error) {
	return call[[]models.TimeSeriesPoint](ctx, c, http.MethodPost, EndpointTimePM, p)
}

// TimeAQI honours p.PredictType as the forecast horizon in years.
func (c *Client) TimeAQI(ctx context.Context, p models.FilterPayload) ([]models.TimeSeriesPoint, error) {
	return call[[]models.TimeSeriesPoint](ctx, c, http.MethodPost, EndpointTimeAQI, p)
}

func (c *Client) Recommendations(ctx context.Context, p models.FilterPayload) (models.RecommendationSet, error) {
	return call[models.RecommendationSet](ctx, c, http.MethodPost, EndpointRecommendations, p)
}

func (c *Client) TimeSeriesRecommendations(ctx context.Context, p models.FilterPayload) (models.RecommendationSet, error) {
	return call[models.RecommendationSet](ctx, c, http.MethodPost, EndpointTimeSeriesRecommendations, p)
}

// YoYComparison sends only the states of p.
func (c *Client) YoYComparison(ctx context.Context, p models.FilterPayload) (models.YoYComparison, error) {
	body := models.StatesPayload{States: append([]string{}, p.States...)}
	return call[models.YoYComparison](ctx, c, http.MethodPost, EndpointYoYComparison, body)
}
