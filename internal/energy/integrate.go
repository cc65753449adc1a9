// Package energy turns power samples into consumed energy by step-hold
// integration: every sample is taken as constant until the next one.
package energy

import (
	"sort"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

const (
	secondsPerHour = 3600
	whPerKWh       = 1000
)

// Integrate computes the energy of one series of power readings in watts.
//
// The readings are sorted by timestamp first (stable, on a copy). Each
// reading except the last opens an interval lasting until the next reading;
// the last reading has no successor and contributes nothing. Values and
// durations are used as they are: negative power or duplicate timestamps
// yield negative or zero energy, never an error.
func Integrate(label string, readings []model.Reading) model.EnergyResult {
	sorted := make([]model.Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	result := model.EnergyResult{Label: label}
	if len(sorted) < 2 {
		return result
	}

	result.Intervals = make([]model.Interval, 0, len(sorted)-1)
	var totalWh float64
	for i := 0; i < len(sorted)-1; i++ {
		cur, next := sorted[i], sorted[i+1]
		durationS := next.Timestamp.Sub(cur.Timestamp).Seconds()
		energyWh := cur.Value * durationS / secondsPerHour

		result.Intervals = append(result.Intervals, model.Interval{
			Start:     cur,
			End:       next.Timestamp,
			DurationS: durationS,
			EnergyWh:  energyWh,
		})
		totalWh += energyWh
	}
	result.TotalKWh = totalWh / whPerKWh

	return result
}

// IntegrateAll integrates every series, keeping their order.
func IntegrateAll(series []model.Series) []model.EnergyResult {
	results := make([]model.EnergyResult, len(series))
	for i, s := range series {
		results[i] = Integrate(s.Label, s.Readings)
	}
	return results
}

// Span returns the start timestamps of the first and the last interval.
// ok is false when the result has no intervals.
func Span(result model.EnergyResult) (tr model.TimeRange, ok bool) {
	if len(result.Intervals) == 0 {
		return model.TimeRange{}, false
	}
	return model.TimeRange{
		Start: result.Intervals[0].Start.Timestamp,
		End:   result.Intervals[len(result.Intervals)-1].Start.Timestamp,
	}, true
}
