// Package selector decides which entities of an export feed the energy
// integration and whether they come from a 1F or a 3F meter.
package selector

import (
	"errors"
	"fmt"
	"io"

	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/model"
	"github.com/tierraverde-cz/homeassistant-shelly-analyza-spotreby/internal/store"
)

// ErrNoEntities is returned when no candidate entity is left to analyse.
var ErrNoEntities = errors.New("no power entities in input")

// Mode selects how candidates are found.
type Mode string

const (
	// ModeSelect keeps power entities only, asks for one of them and
	// derives the meter shape from the chosen entity.
	ModeSelect Mode = "select"
	// ModeAuto derives the meter shape from the whole file and splits a
	// 3F export into total and phases without asking.
	ModeAuto Mode = "auto"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSelect, ModeAuto:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// Chooser picks one of several options and returns its 0-based index.
type Chooser interface {
	Choose(options []string) (int, error)
}

// Selection is the outcome of Select.
type Selection struct {
	// Entity is the chosen entity id; empty when a 3F file was split in
	// ModeAuto.
	Entity string
	Shape  model.MeterShape
	Series []model.Series
	// Candidates are the entities that were offered.
	Candidates []string
}

type Selector struct {
	Mode          Mode
	PowerSuffixes []string
	Chooser       Chooser
	// Out receives the console messages; nil discards them.
	Out io.Writer
}

func New(mode Mode, powerSuffixes []string, chooser Chooser, out io.Writer) *Selector {
	return &Selector{
		Mode:          mode,
		PowerSuffixes: powerSuffixes,
		Chooser:       chooser,
		Out:           out,
	}
}

// Select resolves the series to integrate.
func (s *Selector) Select(data *store.Store) (Selection, error) {
	if s.Mode == ModeAuto {
		return s.selectAuto(data)
	}
	return s.selectEntity(data)
}

func (s *Selector) selectEntity(data *store.Store) (Selection, error) {
	suffixes := s.PowerSuffixes
	if len(suffixes) == 0 {
		suffixes = model.DefaultPowerSuffixes
	}
	candidates := data.FilterSuffixes(suffixes)

	entity, entities, err := s.chooseEntity(candidates)
	if err != nil {
		return Selection{}, err
	}

	shape := DetectShape(entity)
	return Selection{
		Entity:     entity,
		Shape:      shape,
		Series:     Resolve(candidates.Entity(entity), shape),
		Candidates: entities,
	}, nil
}

func (s *Selector) selectAuto(data *store.Store) (Selection, error) {
	entities := data.Entities()
	shape := DetectShape(entities...)
	if shape == model.ThreePhase {
		return Selection{
			Shape:      shape,
			Series:     Resolve(data, shape),
			Candidates: entities,
		}, nil
	}

	entity, _, err := s.chooseEntity(data)
	if err != nil {
		return Selection{}, err
	}
	return Selection{
		Entity:     entity,
		Shape:      shape,
		Series:     Resolve(data.Entity(entity), shape),
		Candidates: entities,
	}, nil
}

// chooseEntity picks one entity of data, asking only when there is more
// than one.
func (s *Selector) chooseEntity(data *store.Store) (string, []string, error) {
	entities := data.Entities()
	s.printf("Detekce více entit...\n")

	var entity string
	switch len(entities) {
	case 0:
		return "", nil, ErrNoEntities
	case 1:
		entity = entities[0]
	default:
		if s.Chooser == nil {
			return "", entities, fmt.Errorf("%d entities found and no way to choose", len(entities))
		}
		s.printf("Načteno více entit. Vyber jednu pro analýzu:\n\n")
		idx, err := s.Chooser.Choose(entities)
		if err != nil {
			return "", entities, fmt.Errorf("choosing entity: %w", err)
		}
		if idx < 0 || idx >= len(entities) {
			return "", entities, fmt.Errorf("choice %d out of range", idx+1)
		}
		entity = entities[idx]
	}

	s.printf("\nVybraná entita: %s\n", entity)
	return entity, entities, nil
}

func (s *Selector) printf(format string, args ...any) {
	if s.Out != nil {
		fmt.Fprintf(s.Out, format, args...)
	}
}

// DetectShape reports ThreePhase when any entity id names a single phase.
func DetectShape(entityIDs ...string) model.MeterShape {
	for _, id := range entityIDs {
		if model.IsPhaseEntity(id) {
			return model.ThreePhase
		}
	}
	return model.SinglePhase
}

// Resolve splits data into the series of a meter shape: one series holding
// everything for 1F, total and phases A/B/C matched by suffix for 3F.
// Series of a 3F split may be empty.
func Resolve(data *store.Store, shape model.MeterShape) []model.Series {
	if shape == model.SinglePhase {
		return []model.Series{{
			Label:    model.LabelTotal,
			Readings: data.Readings(),
		}}
	}

	series := make([]model.Series, 0, len(model.ThreePhaseSuffixes))
	for _, suf := range model.ThreePhaseSuffixes {
		series = append(series, model.Series{
			Label:    model.SeriesLabels[suf],
			Suffix:   suf,
			Readings: data.WithSuffix(suf),
		})
	}
	return series
}
