package energy

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func reading(offset time.Duration, value float64) model.Reading {
	return model.Reading{EntityID: "sensor.solight_power", Timestamp: t0.Add(offset), Value: value}
}

func TestIntegrate_TwoSamples(t *testing.T) {
	res := Integrate("total", []model.Reading{
		reading(0, 1200),
		reading(90*time.Second, 50),
	})

	require.Len(t, res.Intervals, 1)
	assert.Equal(t, "total", res.Label)
	assert.InDelta(t, 90.0, res.Intervals[0].DurationS, 1e-9)
	assert.InDelta(t, 1200*90.0/3600, res.Intervals[0].EnergyWh, 1e-9)
	assert.InDelta(t, 1200*90.0/3600/1000, res.TotalKWh, 1e-12)
	assert.Equal(t, t0.Add(90*time.Second), res.Intervals[0].End)
}

func TestIntegrate_LastSampleExcluded(t *testing.T) {
	two := Integrate("total", []model.Reading{reading(0, 1000), reading(time.Hour, 500)})
	three := Integrate("total", []model.Reading{reading(0, 1000), reading(time.Hour, 500), reading(3*time.Hour, 99999)})

	require.Len(t, two.Intervals, 1)
	require.Len(t, three.Intervals, 2)
	assert.Equal(t, two.Intervals[0], three.Intervals[0])

	second := three.Intervals[1]
	assert.InDelta(t, 500.0, second.Start.Value, 1e-9)
	assert.InDelta(t, 7200.0, second.DurationS, 1e-9)
	assert.InDelta(t, 1000.0, second.EnergyWh, 1e-9)
	assert.InDelta(t, 2.0, three.TotalKWh, 1e-12)

	for _, iv := range three.Intervals {
		assert.NotEqual(t, 99999.0, iv.Start.Value)
	}
}

func TestIntegrate_ShuffleInvariant(t *testing.T) {
	var readings []model.Reading
	for i := 0; i < 50; i++ {
		readings = append(readings, reading(time.Duration(i*37)*time.Second, float64(i*13%700)))
	}
	want := Integrate("total", readings).TotalKWh

	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 10; n++ {
		shuffled := make([]model.Reading, len(readings))
		copy(shuffled, readings)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		assert.InDelta(t, want, Integrate("total", shuffled).TotalKWh, 1e-12)
	}
}

func TestIntegrate_DoesNotReorderInput(t *testing.T) {
	readings := []model.Reading{reading(time.Hour, 1), reading(0, 2)}
	Integrate("total", readings)

	assert.Equal(t, 1.0, readings[0].Value)
}

func TestIntegrate_Degenerate(t *testing.T) {
	empty := Integrate("total", nil)
	assert.Empty(t, empty.Intervals)
	assert.Zero(t, empty.TotalKWh)

	one := Integrate("total", []model.Reading{reading(0, 5000)})
	assert.Empty(t, one.Intervals)
	assert.Zero(t, one.TotalKWh)

	_, ok := Span(one)
	assert.False(t, ok)
}

func TestIntegrate_NegativeAndDuplicate(t *testing.T) {
	res := Integrate("total", []model.Reading{
		reading(0, -600),
		reading(30*time.Minute, 400),
		reading(30*time.Minute, 800),
		reading(time.Hour, 0),
	})

	require.Len(t, res.Intervals, 3)
	assert.InDelta(t, -300.0, res.Intervals[0].EnergyWh, 1e-9)
	// Equal timestamps give a zero-length interval, not an error.
	assert.Zero(t, res.Intervals[1].DurationS)
	assert.Zero(t, res.Intervals[1].EnergyWh)
	assert.InDelta(t, 400.0, res.Intervals[2].EnergyWh, 1e-9)
	assert.InDelta(t, 0.1, res.TotalKWh, 1e-12)
}

func TestIntegrate_FractionalSeconds(t *testing.T) {
	res := Integrate("total", []model.Reading{
		reading(0, 3600),
		reading(1500*time.Millisecond, 0),
	})

	require.Len(t, res.Intervals, 1)
	assert.InDelta(t, 1.5, res.Intervals[0].DurationS, 1e-12)
	assert.InDelta(t, 1.5, res.Intervals[0].EnergyWh, 1e-12)
}

func TestIntegrateAll(t *testing.T) {
	series := []model.Series{
		{Label: "total", Readings: []model.Reading{reading(0, 1000), reading(time.Hour, 0)}},
		{Label: "fáze A", Readings: nil},
	}

	results := IntegrateAll(series)

	require.Len(t, results, 2)
	assert.Equal(t, "total", results[0].Label)
	assert.InDelta(t, 1.0, results[0].TotalKWh, 1e-12)
	assert.Equal(t, "fáze A", results[1].Label)
	assert.Zero(t, results[1].TotalKWh)
}

func TestSpan(t *testing.T) {
	res := Integrate("total", []model.Reading{reading(0, 1), reading(time.Hour, 1), reading(2*time.Hour, 1)})

	tr, ok := Span(res)
	require.True(t, ok)
	assert.Equal(t, t0, tr.Start)
	// The last reading opens no interval, so the span ends one sample early.
	assert.Equal(t, t0.Add(time.Hour), tr.End)
}
