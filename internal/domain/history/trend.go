package history

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Direction of the period-over-period change.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
	// DirectionUnavailable marks a trend without a usable baseline.
	DirectionUnavailable Direction = "unavailable"
)

// Trend compares the current period total with the previous one.
type Trend struct {
	CurrentTotal     int       `json:"currentTotal"`
	PreviousTotal    int       `json:"previousTotal"`
	Percent          float64   `json:"percent"`
	Direction        Direction `json:"direction"`
	Comparable       bool      `json:"comparable"`
	FormattedTotal   string    `json:"formattedTotal"`
	FormattedPercent string    `json:"formattedPercent"`
}

var ptBR = message.NewPrinter(language.BrazilianPortuguese)

// PercentChange follows the dashboard rule: with no previous events any
// current activity counts as a 100% increase.
func PercentChange(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// DirectionOf maps a percent change to a direction.
func DirectionOf(percent float64) Direction {
	switch {
	case percent > 0:
		return DirectionUp
	case percent < 0:
		return DirectionDown
	default:
		return DirectionFlat
	}
}

// ComputeTrend builds the KPI trend. comparable is false when the previous
// period could not be queried; the percent is then left at zero and the
// direction reported as unavailable instead of a misleading +100%.
func ComputeTrend(current, previous int, comparable bool) Trend {
	trend := Trend{
		CurrentTotal:   current,
		PreviousTotal:  previous,
		Comparable:     comparable,
		Direction:      DirectionUnavailable,
		FormattedTotal: ptBR.Sprintf("%d", current),
	}
	if !comparable {
		return trend
	}
	trend.Percent = PercentChange(current, previous)
	trend.Direction = DirectionOf(trend.Percent)
	trend.FormattedPercent = ptBR.Sprintf("%.1f", math.Abs(trend.Percent))
	return trend
}
