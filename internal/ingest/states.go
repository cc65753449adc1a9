package ingest

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

// StatesParser parses raw state rows exported from the Home Assistant
// recorder database (see cmd/sql-stats).
//
// Expected format:
//
//	sensor_id,value,updated_ts
//	sensor.xxx_power,-341,1770896300.6877737
type StatesParser struct {
	stats ParseStats
}

func (p *StatesParser) Parse(r io.Reader) ([]model.Reading, error) {
	p.stats = ParseStats{}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	_, index := normalizeHeader(header)
	if err := requireColumns(index, "sensor_id", "value", "updated_ts"); err != nil {
		return nil, err
	}

	var readings []model.Reading
	lineNum := 1

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

		ts, err := parseUnixTimestamp(field(record, index, "updated_ts"))
		if err != nil {
			return nil, fmt.Errorf("line %d: updated_ts: %w", lineNum, err)
		}

		value, ok := parseState(field(record, index, "value"))
		if !ok {
			p.stats.Dropped++
			continue
		}

		readings = append(readings, model.Reading{
			EntityID:  field(record, index, "sensor_id"),
			Timestamp: ts,
			Value:     value,
		})
	}

	SortReadings(readings)
	return readings, nil
}

func (p *StatesParser) LastStats() ParseStats {
	return p.stats
}
