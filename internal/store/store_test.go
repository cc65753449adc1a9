package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

func makeReadings(entityID string, values []float64, startTime time.Time, interval time.Duration) []model.Reading {
	readings := make([]model.Reading, len(values))
	for i, v := range values {
		readings[i] = model.Reading{
			EntityID:  entityID,
			Timestamp: startTime.Add(time.Duration(i) * interval),
			Value:     v,
		}
	}
	return readings
}

var (
	entityID  = "sensor.solight_power"
	startTime = time.Date(2024, 11, 21, 12, 0, 0, 0, time.UTC)
	hour      = time.Hour
)

func TestStore_Len(t *testing.T) {
	s := New(makeReadings(entityID, []float64{100, 200, 300, 400, 500}, startTime, hour))

	assert.Equal(t, 5, s.Len())
	assert.Equal(t, 0, New(nil).Len())
}

func TestStore_TimeRange(t *testing.T) {
	s := New(makeReadings(entityID, []float64{100, 200, 300}, startTime, hour))

	tr, ok := s.TimeRange()
	require.True(t, ok)
	assert.Equal(t, startTime, tr.Start)
	assert.Equal(t, startTime.Add(2*hour), tr.End)

	_, ok = New(nil).TimeRange()
	assert.False(t, ok)
}

func TestStore_Entities(t *testing.T) {
	var readings []model.Reading
	readings = append(readings, makeReadings("sensor.c_power", []float64{1}, startTime, hour)...)
	readings = append(readings, makeReadings("sensor.a_power", []float64{1, 2}, startTime, hour)...)
	readings = append(readings, makeReadings("sensor.b_voltage", []float64{230}, startTime, hour)...)

	s := New(readings)

	assert.Equal(t, []string{"sensor.a_power", "sensor.b_voltage", "sensor.c_power"}, s.Entities())
	assert.Equal(t, []string{"sensor.a_power", "sensor.c_power"}, s.FilterSuffixes(model.DefaultPowerSuffixes).Entities())
	assert.Equal(t, 2, s.Entity("sensor.a_power").Len())
	assert.Empty(t, s.Entity("sensor.missing").Entities())
}

func TestStore_WithSuffix(t *testing.T) {
	var readings []model.Reading
	readings = append(readings, makeReadings("sensor.em_total_active_power", []float64{10, 20}, startTime, hour)...)
	readings = append(readings, makeReadings("sensor.em_phase_a_active_power", []float64{5}, startTime, hour)...)

	s := New(readings)

	total := s.WithSuffix(model.SuffixTotal)
	require.Len(t, total, 2)
	assert.InDelta(t, 10.0, total[0].Value, 0.001)
	assert.Len(t, s.WithSuffix(model.SuffixPhaseA), 1)
	assert.Empty(t, s.WithSuffix(model.SuffixPhaseB))
}

func TestStore_UnsortedInput(t *testing.T) {
	// Add in reverse order
	readings := []model.Reading{
		{Timestamp: startTime.Add(2 * hour), EntityID: entityID, Value: 300},
		{Timestamp: startTime, EntityID: entityID, Value: 100},
		{Timestamp: startTime.Add(hour), EntityID: entityID, Value: 200},
		{Timestamp: startTime, EntityID: entityID, Value: 101},
	}
	s := New(readings)

	result := s.Readings()
	require.Len(t, result, 4)
	assert.InDelta(t, 100.0, result[0].Value, 0.001)
	assert.InDelta(t, 101.0, result[1].Value, 0.001)
	assert.InDelta(t, 200.0, result[2].Value, 0.001)
	assert.InDelta(t, 300.0, result[3].Value, 0.001)

	// The caller's slice is untouched.
	assert.InDelta(t, 300.0, readings[0].Value, 0.001)
}
