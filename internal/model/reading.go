package model

import "time"

// Reading is one power sample of one Home Assistant entity.
type Reading struct {
	EntityID  string
	Timestamp time.Time
	Value     float64
}

// Series holds the readings of one logical stream, sorted by timestamp.
type Series struct {
	Label    string
	Suffix   string
	Readings []Reading
}

// Empty reports whether the series has no readings.
func (s Series) Empty() bool {
	return len(s.Readings) == 0
}

// Interval is the span between a reading and its successor.
type Interval struct {
	Start     Reading
	End       time.Time
	DurationS float64
	EnergyWh  float64
}

// EnergyResult is the integrated energy of one series.
type EnergyResult struct {
	Label     string
	Intervals []Interval
	TotalKWh  float64
}

type TimeRange struct {
	Start time.Time
	End   time.Time
}
