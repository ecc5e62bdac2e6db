package aqi

import "fmt"

// Upper bounds (inclusive) of each AQI band.
const (
	ThresholdGood               = 50
	ThresholdModerate           = 100
	ThresholdUnhealthySensitive = 150
	ThresholdUnhealthy          = 200
	ThresholdVeryUnhealthy      = 300
)

// Category is one of the six EPA air quality bands, ordered by severity.
type Category int

const (
	Good Category = iota
	Moderate
	UnhealthySensitive
	Unhealthy
	VeryUnhealthy
	Hazardous
)

// Priority is the recommendation urgency derived from a category.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var labels = [...]string{
	Good:               "Good",
	Moderate:           "Moderate",
	UnhealthySensitive: "Unhealthy for Sensitive",
	Unhealthy:          "Unhealthy",
	VeryUnhealthy:      "Very Unhealthy",
	Hazardous:          "Hazardous",
}

var colors = [...]string{
	Good:               "#22c55e",
	Moderate:           "#eab308",
	UnhealthySensitive: "#f97316",
	Unhealthy:          "#ef4444",
	VeryUnhealthy:      "#a855f7",
	Hazardous:          "#7f1d1d",
}

// Classify maps an index value to its band. Values above the top threshold
// clamp to Hazardous. Negative values fall into Good.
func Classify(value float64) Category {
	switch {
	case value <= ThresholdGood:
		return Good
	case value <= ThresholdModerate:
		return Moderate
	case value <= ThresholdUnhealthySensitive:
		return UnhealthySensitive
	case value <= ThresholdUnhealthy:
		return Unhealthy
	case value <= ThresholdVeryUnhealthy:
		return VeryUnhealthy
	default:
		return Hazardous
	}
}

// ParseCategory maps a backend category label back to a Category.
func ParseCategory(label string) (Category, bool) {
	for i, l := range labels {
		if l == label {
			return Category(i), true
		}
	}
	return Good, false
}

// String returns the label the backend uses for the category.
func (c Category) String() string {
	if c < Good || c > Hazardous {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return labels[c]
}

// Color returns the hex color token for the category.
func (c Category) Color() string {
	if c < Good || c > Hazardous {
		return colors[Hazardous]
	}
	return colors[c]
}

// Severity returns a numeric severity for sorting (higher = more dangerous).
func (c Category) Severity() int {
	return int(c)
}

// Priority returns the recommendation tier for the category.
func (c Category) Priority() Priority {
	switch c {
	case Good:
		return PriorityLow
	case Moderate:
		return PriorityMedium
	case UnhealthySensitive, Unhealthy:
		return PriorityHigh
	default:
		return PriorityCritical
	}
}

// AtLeast reports whether c is as severe as or more severe than other.
func (c Category) AtLeast(other Category) bool {
	return c.Severity() >= other.Severity()
}

// IsDangerous reports whether the value is past the sensitive-groups band.
func IsDangerous(value float64) bool {
	return value > ThresholdUnhealthySensitive
}

// FormatValue renders an optional index value with one decimal place.
func FormatValue(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f", *v)
}
