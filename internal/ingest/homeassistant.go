package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

var historyColumns = []string{"entity_id", "state", "last_changed"}

// HomeAssistantParser parses Home Assistant history CSV exports.
//
// Expected format (column order and case do not matter):
//
//	entity_id,state,last_changed
//	sensor.shelly3em_total_active_power,"759,59",2024-11-21T13:00:00.000Z
//
// Rows whose state is not a number (e.g. "unavailable") are dropped. A
// timestamp that cannot be parsed fails the whole file.
type HomeAssistantParser struct {
	// Strict rejects any header that is not exactly the three columns.
	Strict bool

	stats ParseStats
}

func NewHomeAssistantParser(strict bool) *HomeAssistantParser {
	return &HomeAssistantParser{Strict: strict}
}

func (p *HomeAssistantParser) Parse(r io.Reader) ([]model.Reading, error) {
	p.stats = ParseStats{}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	index, err := p.validateHeader(header)
	if err != nil {
		return nil, err
	}

	var readings []model.Reading
	lineNum := 1 // header was line 1

	for {
		lineNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV line %d: %w", lineNum, err)
		}
		p.stats.Rows++

		ts, err := parseTimestamp(field(record, index, "last_changed"))
		if err != nil {
			return nil, fmt.Errorf("line %d: last_changed: %w", lineNum, err)
		}

		value, ok := parseState(field(record, index, "state"))
		if !ok {
			p.stats.Dropped++
			continue
		}

		readings = append(readings, model.Reading{
			EntityID:  field(record, index, "entity_id"),
			Timestamp: ts,
			Value:     value,
		})
	}

	SortReadings(readings)
	return readings, nil
}

func (p *HomeAssistantParser) LastStats() ParseStats {
	return p.stats
}

func (p *HomeAssistantParser) validateHeader(header []string) (map[string]int, error) {
	names, index := normalizeHeader(header)
	if p.Strict {
		got := slices.Clone(names)
		slices.Sort(got)
		want := slices.Clone(historyColumns)
		slices.Sort(want)
		if !slices.Equal(got, want) {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedColumns, names)
		}
		return index, nil
	}
	if err := requireColumns(index, historyColumns...); err != nil {
		return nil, err
	}
	return index, nil
}
