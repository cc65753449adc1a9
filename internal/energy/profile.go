package energy

import (
	"sort"
	"time"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

// HourBucket accumulates the energy drawn in one clock hour of the day.
type HourBucket struct {
	EnergyWh float64
	// Seconds of data covering this hour.
	Seconds float64
}

// DailyTotal is the energy of one calendar day.
type DailyTotal struct {
	Day      time.Time
	EnergyWh float64
}

// ByHour spreads the energy of every interval over the clock hours of loc
// it covers. The buckets add up to the total of result.
func ByHour(result model.EnergyResult, loc *time.Location) [24]HourBucket {
	var buckets [24]HourBucket
	for _, iv := range result.Intervals {
		eachHour(iv, loc, func(start time.Time, seconds float64) {
			b := &buckets[start.Hour()]
			b.EnergyWh += iv.Start.Value * seconds / secondsPerHour
			b.Seconds += seconds
		})
	}
	return buckets
}

// ByDay sums the energy per calendar day of loc, oldest day first.
func ByDay(result model.EnergyResult, loc *time.Location) []DailyTotal {
	totals := make(map[time.Time]float64)
	for _, iv := range result.Intervals {
		eachHour(iv, loc, func(start time.Time, seconds float64) {
			day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
			totals[day] += iv.Start.Value * seconds / secondsPerHour
		})
	}

	days := make([]DailyTotal, 0, len(totals))
	for day, wh := range totals {
		days = append(days, DailyTotal{Day: day, EnergyWh: wh})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })
	return days
}

// eachHour calls fn for every piece of iv cut at the hour boundaries of loc.
func eachHour(iv model.Interval, loc *time.Location, fn func(start time.Time, seconds float64)) {
	cur := iv.Start.Timestamp.In(loc)
	end := iv.End.In(loc)
	for cur.Before(end) {
		next := time.Date(cur.Year(), cur.Month(), cur.Day(), cur.Hour()+1, 0, 0, 0, loc)
		if next.After(end) {
			next = end
		}
		fn(cur, next.Sub(cur).Seconds())
		cur = next
	}
}
