package model

import "strings"

// MeterShape tells whether readings come from a single-phase or a
// three-phase meter.
type MeterShape int

const (
	SinglePhase MeterShape = iota
	ThreePhase
)

func (m MeterShape) String() string {
	if m == ThreePhase {
		return "3F"
	}
	return "1F"
}

// Entity id suffixes reported by Shelly three-phase meters.
const (
	SuffixTotal  = "total_active_power"
	SuffixPhaseA = "phase_a_active_power"
	SuffixPhaseB = "phase_b_active_power"
	SuffixPhaseC = "phase_c_active_power"
)

// PhaseSuffixes lists the per-phase suffixes in display order.
var PhaseSuffixes = []string{SuffixPhaseA, SuffixPhaseB, SuffixPhaseC}

// ThreePhaseSuffixes lists the total suffix followed by the phases.
var ThreePhaseSuffixes = []string{SuffixTotal, SuffixPhaseA, SuffixPhaseB, SuffixPhaseC}

// DefaultPowerSuffixes match power entities. Voltage and current entities
// of the same device do not end with any of them.
var DefaultPowerSuffixes = []string{"_power", "_napajeni"}

// LabelTotal is the label of the series that defines the data range.
const LabelTotal = "total"

// SeriesLabels maps a suffix to the Czech label used in reports.
var SeriesLabels = map[string]string{
	SuffixTotal:  LabelTotal,
	SuffixPhaseA: "fáze A",
	SuffixPhaseB: "fáze B",
	SuffixPhaseC: "fáze C",
}

// HasAnySuffix reports whether id ends with one of suffixes.
func HasAnySuffix(id string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(id, suf) {
			return true
		}
	}
	return false
}

// IsPhaseEntity reports whether id names a single phase of a 3F meter.
func IsPhaseEntity(id string) bool {
	for _, suf := range PhaseSuffixes {
		if strings.Contains(id, suf) {
			return true
		}
	}
	return false
}
