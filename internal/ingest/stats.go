package ingest

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

// StatsParser parses Home Assistant long-term statistics CSV exports.
// Each row becomes one reading at start_time holding the hourly mean, so
// step-hold integration of the result yields the hourly energy.
//
// Expected format:
//
//	sensor_id,start_time,avg,min_val,max_val
//	sensor.xxx_power,1732186800.0,-368.85,-810.0,-162.0
type StatsParser struct {
	stats ParseStats
}

func (p *StatsParser) Parse(r io.Reader) ([]model.Reading, error) {
	p.stats = ParseStats{}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	_, index := normalizeHeader(header)
	if err := requireColumns(index, "sensor_id", "start_time", "avg"); err != nil {
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

		ts, err := parseUnixTimestamp(field(record, index, "start_time"))
		if err != nil {
			return nil, fmt.Errorf("line %d: start_time: %w", lineNum, err)
		}

		avg, ok := parseState(field(record, index, "avg"))
		if !ok {
			p.stats.Dropped++
			continue
		}

		readings = append(readings, model.Reading{
			EntityID:  field(record, index, "sensor_id"),
			Timestamp: ts,
			Value:     avg,
		})
	}

	SortReadings(readings)
	return readings, nil
}

func (p *StatsParser) LastStats() ParseStats {
	return p.stats
}
