package store

import (
	"sort"
	"strings"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
)

// Store holds the readings of one input file, sorted by timestamp. Entries
// with equal timestamps keep their input order. A Store is never modified
// after New; filters return new stores.
type Store struct {
	readings []model.Reading
}

// New copies readings and stable-sorts the copy by timestamp.
func New(readings []model.Reading) *Store {
	sorted := make([]model.Reading, len(readings))
	copy(sorted, readings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return &Store{readings: sorted}
}

// Len returns the number of readings.
func (s *Store) Len() int {
	return len(s.readings)
}

// Readings returns a copy of all readings.
func (s *Store) Readings() []model.Reading {
	return s.filter(func(model.Reading) bool { return true })
}

// Entities returns the distinct entity ids, sorted lexicographically.
func (s *Store) Entities() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, r := range s.readings {
		if !seen[r.EntityID] {
			seen[r.EntityID] = true
			ids = append(ids, r.EntityID)
		}
	}
	sort.Strings(ids)
	return ids
}

// FilterSuffixes keeps readings whose entity id ends with any of suffixes.
func (s *Store) FilterSuffixes(suffixes []string) *Store {
	return &Store{readings: s.filter(func(r model.Reading) bool {
		return model.HasAnySuffix(r.EntityID, suffixes)
	})}
}

// Entity keeps the readings of one entity.
func (s *Store) Entity(id string) *Store {
	return &Store{readings: s.filter(func(r model.Reading) bool {
		return r.EntityID == id
	})}
}

// WithSuffix returns the readings whose entity id ends with suffix.
func (s *Store) WithSuffix(suffix string) []model.Reading {
	return s.filter(func(r model.Reading) bool {
		return strings.HasSuffix(r.EntityID, suffix)
	})
}

// TimeRange returns the time range covered by the readings.
func (s *Store) TimeRange() (model.TimeRange, bool) {
	if len(s.readings) == 0 {
		return model.TimeRange{}, false
	}

	return model.TimeRange{
		Start: s.readings[0].Timestamp,
		End:   s.readings[len(s.readings)-1].Timestamp,
	}, true
}

func (s *Store) filter(keep func(model.Reading) bool) []model.Reading {
	var out []model.Reading
	for _, r := range s.readings {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
