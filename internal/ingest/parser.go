package ingest

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

var (
	ErrUnexpectedColumns = errors.New("unexpected CSV columns")
	ErrMissingColumn     = errors.New("missing CSV column")
	ErrBadTimestamp      = errors.New("invalid timestamp")
)

// Input formats understood by NewParser.
const (
	FormatHistory = "history"
	FormatStates  = "states"
	FormatStats   = "stats"
)

// Parser reads sensor data from a source and returns readings sorted by
// timestamp.
type Parser interface {
	Parse(r io.Reader) ([]model.Reading, error)
}

// ParseStats counts the data rows seen by the last Parse call.
type ParseStats struct {
	Rows    int
	Dropped int
}

// NewParser returns the parser for a configured input format. strict only
// applies to the history format.
func NewParser(format string, strict bool) (Parser, error) {
	switch format {
	case FormatHistory, "":
		return NewHomeAssistantParser(strict), nil
	case FormatStates:
		return &StatesParser{}, nil
	case FormatStats:
		return &StatsParser{}, nil
	}
	return nil, fmt.Errorf("unknown input format %q", format)
}

// LastStats returns the row counters of p when it keeps them.
func LastStats(p Parser) (ParseStats, bool) {
	sr, ok := p.(interface{ LastStats() ParseStats })
	if !ok {
		return ParseStats{}, false
	}
	return sr.LastStats(), true
}

// normalizeHeader lower-cases and trims column names and maps each name to
// its index. A leading byte order mark is ignored.
func normalizeHeader(header []string) ([]string, map[string]int) {
	names := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := strings.ToLower(strings.TrimSpace(h))
		names[i] = name
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return names, index
}

func requireColumns(index map[string]int, columns ...string) error {
	for _, col := range columns {
		if _, ok := index[col]; !ok {
			return fmt.Errorf("%w: %q", ErrMissingColumn, col)
		}
	}
	return nil
}

func field(record []string, index map[string]int, col string) string {
	i, ok := index[col]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseState converts a state value to a number. Decimal commas are
// accepted. ok is false for anything that is not a finite-or-infinite
// number, e.g. "unavailable".
func parseState(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp parses an ISO 8601 instant. Timestamps without an offset
// are taken as UTC.
func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w %q", ErrBadTimestamp, s)
}

// parseUnixTimestamp parses a Unix epoch float (seconds) into a time.Time.
func parseUnixTimestamp(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, fmt.Errorf("%w %q", ErrBadTimestamp, s)
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}

// SortReadings orders readings by timestamp, keeping the input order of
// equal timestamps.
func SortReadings(readings []model.Reading) {
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].Timestamp.Before(readings[j].Timestamp)
	})
}
