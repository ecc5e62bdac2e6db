package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lox/aqidash/internal/dashboard"
	"github.com/lox/aqidash/internal/models"
)

// Sheet names, in workbook order.
const (
	SheetSummary           = "Summary"
	SheetStateAQI          = "State AQI"
	SheetTimeAQI           = "Time Series AQI"
	SheetTimeGases         = "Time Series Gases"
	SheetTimePM            = "Time Series PM"
	SheetContribGases      = "Contribution Gases"
	SheetContribPM25       = "Contribution PM2.5"
	SheetContribPM10       = "Contribution PM10"
	SheetContribAQI        = "Contribution AQI"
	SheetRecommendations   = "Recommendations"
	recommendationHeadRows = 4
)

const (
	dateLayout      = "1/2/2006"
	timestampLayout = "1/2/2006, 3:04:05 PM"
)

// Sheet is one worksheet as rows of cell values.
type Sheet struct {
	Name   string
	Rows   [][]any
	Widths []float64
}

// Workbook is the document model rendered to xlsx.
type Workbook struct {
	Sheets []Sheet
}

// Sheet returns the named sheet, or nil.
func (w *Workbook) Sheet(name string) *Sheet {
	for i := range w.Sheets {
		if w.Sheets[i].Name == name {
			return &w.Sheets[i]
		}
	}
	return nil
}

// Assemble builds the workbook for a snapshot. Slots without data produce
// no sheet. A panic while assembling is returned as an error.
func Assemble(snap dashboard.Snapshot, generatedAt time.Time) (wb *Workbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb = nil
			err = fmt.Errorf("assemble workbook: %v", r)
		}
	}()

	bag := snap.Bag
	wb = &Workbook{}
	wb.Sheets = append(wb.Sheets, summarySheet(snap, generatedAt))

	if entries := bag.MapAQI(); len(entries) > 0 {
		wb.Sheets = append(wb.Sheets, mapSheet(entries))
	}

	for _, ts := range []struct {
		name string
		key  dashboard.Key
	}{
		{SheetTimeAQI, dashboard.KeyTimeAQI},
		{SheetTimeGases, dashboard.KeyTimeGases},
		{SheetTimePM, dashboard.KeyTimePM},
	} {
		if points := bag.TimeSeries(ts.key); len(points) > 0 {
			wb.Sheets = append(wb.Sheets, timeSeriesSheet(ts.name, points))
		}
	}

	for _, c := range []struct {
		name string
		key  dashboard.Key
	}{
		{SheetContribGases, dashboard.KeyPieGases},
		{SheetContribPM25, dashboard.KeyPiePM25},
		{SheetContribPM10, dashboard.KeyPiePM10},
		{SheetContribAQI, dashboard.KeyPieAQI},
	} {
		if shares := bag.Contribution(c.key); len(shares) > 0 {
			wb.Sheets = append(wb.Sheets, contributionSheet(c.name, shares))
		}
	}

	if recs := bag.Recommendations(); recs != nil {
		wb.Sheets = append(wb.Sheets, recommendationsSheet(recs))
	}
	return wb, nil
}

func summarySheet(snap dashboard.Snapshot, generatedAt time.Time) Sheet {
	bag := snap.Bag
	dateRange := "N/A"
	if r := snap.Filters.Range; !r.Start.IsZero() && !r.End.IsZero() {
		dateRange = r.Start.Format(dateLayout) + " - " + r.End.Format(dateLayout)
	}
	asOf := "N/A"
	if !snap.Timestamp.IsZero() {
		asOf = snap.Timestamp.Format(timestampLayout)
	}
	states := "N/A"
	if len(snap.Filters.States) > 0 {
		states = strings.Join(snap.Filters.States, ", ")
	}

	var avgAQI, avgPM25, avgPM10, sumGases *float64
	if m := bag.AvgAQI(); m != nil {
		avgAQI = &m.Mean
	}
	if m := bag.AvgPM25(); m != nil {
		avgPM25 = &m.Mean
	}
	if m := bag.AvgPM10(); m != nil {
		avgPM10 = &m.Mean
	}
	if m := bag.SumGases(); m != nil {
		sumGases = &m.Sum
	}

	return Sheet{
		Name: SheetSummary,
		Rows: [][]any{
			{"Air Quality Index Dashboard Report"},
			{"Generated on:", generatedAt.Format(timestampLayout)},
			{"Data as of:", asOf},
			{""},
			{"FILTER SETTINGS"},
			{"Date Range:", dateRange},
			{"Selected States:", states},
			{""},
			{"SUMMARY METRICS"},
			{"Metric", "Value", "Unit"},
			{"Average AQI", fixed2(avgAQI), "-"},
			{"Average PM2.5", fixed2(avgPM25), "μg/m³"},
			{"Average PM10", fixed2(avgPM10), "μg/m³"},
			{"Total Gases", fixed2(sumGases), "ppb"},
		},
		Widths: []float64{20, 40, 15},
	}
}

func fixed2(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *v)
}

func mapSheet(entries []models.MapEntry) Sheet {
	rows := [][]any{{"State Name", "Mean AQI Value", "AQI Category"}}
	for _, e := range entries {
		rows = append(rows, []any{e.StateName, e.MeanValue, e.Category})
	}
	return Sheet{Name: SheetStateAQI, Rows: rows, Widths: []float64{20, 15, 25}}
}

// column is one optional field of a record type.
type column[T any] struct {
	header string
	cell   func(T) (any, bool)
}

var timeSeriesColumns = []column[models.TimeSeriesPoint]{
	{"name", func(p models.TimeSeriesPoint) (any, bool) { return p.Name, p.Name != "" }},
	{"Date", func(p models.TimeSeriesPoint) (any, bool) { return deref(p.Date) }},
	{"History", func(p models.TimeSeriesPoint) (any, bool) { return deref(p.History) }},
	{"Predicted", func(p models.TimeSeriesPoint) (any, bool) { return deref(p.Predicted) }},
	{"CI_range", func(p models.TimeSeriesPoint) (any, bool) {
		if p.CIRange == nil {
			return nil, false
		}
		return fmt.Sprintf("%g - %g", p.CIRange[0], p.CIRange[1]), true
	}},
	{"NO2 Mean", func(p models.TimeSeriesPoint) (any, bool) { return deref(p.NO2Mean) }},
	{"CO Mean", func(p models.TimeSeriesPoint) (any, bool) { return deref(p.COMean) }},
	{"PM2.5 Mean", func(p models.TimeSeriesPoint) (any, bool) { return deref(p.PM25Mean) }},
	{"PM10 Mean", func(p models.TimeSeriesPoint) (any, bool) { return deref(p.PM10Mean) }},
}

var contributionColumns = []column[models.CategoryShare]{
	{"name", func(c models.CategoryShare) (any, bool) { return c.Name, true }},
	{"value", func(c models.CategoryShare) (any, bool) { return c.Value, true }},
	{"fill", func(c models.CategoryShare) (any, bool) { return c.Fill, c.Fill != "" }},
}

func deref[T any](v *T) (any, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}

// recordSheet lays records out one per row. The header holds every column
// present in at least one record, in declared order.
func recordSheet[T any](name string, records []T, cols []column[T]) Sheet {
	var used []column[T]
	for _, c := range cols {
		for _, r := range records {
			if _, ok := c.cell(r); ok {
				used = append(used, c)
				break
			}
		}
	}

	header := make([]any, len(used))
	for i, c := range used {
		header[i] = c.header
	}
	rows := [][]any{header}
	for _, r := range records {
		row := make([]any, len(used))
		for i, c := range used {
			if v, ok := c.cell(r); ok {
				row[i] = v
			}
		}
		rows = append(rows, row)
	}
	return Sheet{Name: name, Rows: rows}
}

func timeSeriesSheet(name string, points []models.TimeSeriesPoint) Sheet {
	return recordSheet(name, points, timeSeriesColumns)
}

func contributionSheet(name string, shares []models.CategoryShare) Sheet {
	return recordSheet(name, shares, contributionColumns)
}

func recommendationsSheet(recs *models.RecommendationSet) Sheet {
	context := recs.ContextUsed
	if context == "" {
		context = "N/A"
	}
	rows := [][]any{
		{"AI RECOMMENDATIONS"},
		{"Context:", context},
		{""},
		{"Recommendations:"},
	}
	for i, r := range recs.Response {
		rows = append(rows,
			[]any{fmt.Sprintf("%d. %s", i+1, r.Title)},
			[]any{r.Description},
			[]any{""},
		)
	}
	return Sheet{Name: SheetRecommendations, Rows: rows, Widths: []float64{80}}
}
