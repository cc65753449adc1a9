package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildQueries_Suffixes(t *testing.T) {
	sql := buildQueries(nil, []string{"_power", "_napajeni"})

	assert.Contains(t, sql, `states_meta.entity_id LIKE '%\_power' ESCAPE '\'`)
	assert.Contains(t, sql, `OR states_meta.entity_id LIKE '%\_napajeni' ESCAPE '\'`)
	assert.Contains(t, sql, `statistics_meta.statistic_id LIKE '%\_power' ESCAPE '\'`)
	assert.Contains(t, sql, "AS last_changed")
	assert.Contains(t, sql, "strftime('%Y-%m-%dT%H:%M:%fZ'")
	assert.NotContains(t, sql, "{{filter")
	assert.Equal(t, 3, strings.Count(sql, "SELECT"))
}

func TestBuildQueries_Entities(t *testing.T) {
	sql := buildQueries([]string{"sensor.b_power", "sensor.a'power"}, []string{"_power"})

	assert.Contains(t, sql, "states_meta.entity_id IN (\n  'sensor.a''power'\n  ,  'sensor.b_power'\n)")
	assert.NotContains(t, sql, "LIKE")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `\_phase\_a\%`, escapeLike("_phase_a%"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}
