// Package score defines the event model produced by generation: measures of
// typed note and rest events with exact fractional durations.
package score

import (
	"fmt"

	"github.com/cantus-labs/cantus-api/internal/theory"
)

// Duration is an exact fraction of a whole note. A quarter note is {1, 4},
// a dotted eighth {3, 16}. All supported durations are exact multiples of a
// sixty-fourth note, which keeps per-measure sums integral.
type Duration struct {
	Num int `json:"num"`
	Den int `json:"den"`
}

// Sixtyfourths returns the duration in sixty-fourth notes.
func (d Duration) Sixtyfourths() int {
	return d.Num * 64 / d.Den
}

// QuarterOrLonger reports whether the duration is at least a quarter note.
func (d Duration) QuarterOrLonger() bool {
	return d.Sixtyfourths() >= 16
}

func (d Duration) String() string {
	return fmt.Sprintf("%d/%d", d.Num, d.Den)
}

// Meter is a time signature plus an optional amalgam subdivision list, e.g.
// 5/8 with subdivisions [2,3].
type Meter struct {
	Beats        int   `json:"beats"`
	Unit         int   `json:"unit"`
	Subdivisions []int `json:"subdivisions,omitempty"`
}

// Validate checks the meter for supported units and subdivision sums.
func (m Meter) Validate() error {
	if m.Beats < 1 {
		return fmt.Errorf("meter numerator must be positive, got %d", m.Beats)
	}
	switch m.Unit {
	case 2, 4, 8, 16:
	default:
		return fmt.Errorf("unsupported meter denominator %d", m.Unit)
	}
	if len(m.Subdivisions) > 0 {
		sum := 0
		for _, s := range m.Subdivisions {
			if s < 1 {
				return fmt.Errorf("subdivision entries must be positive, got %d", s)
			}
			sum += s
		}
		if sum != m.Beats {
			return fmt.Errorf("subdivisions %v sum to %d, want meter numerator %d", m.Subdivisions, sum, m.Beats)
		}
	}
	return nil
}

// EffectiveSubdivisions returns the subdivision list. A meter without a
// declared subdivision is one undivided group, so only beat 0 is strong.
func (m Meter) EffectiveSubdivisions() []int {
	if len(m.Subdivisions) > 0 {
		return m.Subdivisions
	}
	return []int{m.Beats}
}

// Sixtyfourths returns the nominal measure length in sixty-fourth notes.
func (m Meter) Sixtyfourths() int {
	return m.Beats * 64 / m.Unit
}

func (m Meter) String() string {
	return fmt.Sprintf("%d/%d", m.Beats, m.Unit)
}

// ImpulseType controls where breath-like rests gravitate.
type ImpulseType string

const (
	ImpulseTetic      ImpulseType = "tetic"
	ImpulseAnacrustic ImpulseType = "anacrustic"
	ImpulseAcephalous ImpulseType = "acephalous"
)

// ParseImpulse validates an impulse type name.
func ParseImpulse(name string) (ImpulseType, error) {
	switch ImpulseType(name) {
	case ImpulseTetic, ImpulseAnacrustic, ImpulseAcephalous:
		return ImpulseType(name), nil
	case "":
		return ImpulseTetic, nil
	}
	return "", fmt.Errorf("unknown impulse type %q", name)
}

// NoteFunction tags a note's melodic role.
type NoteFunction string

const (
	FunctionStructural   NoteFunction = "structural"
	FunctionPassing      NoteFunction = "passing"
	FunctionNeighbor     NoteFunction = "neighbor"
	FunctionAppoggiatura NoteFunction = "appoggiatura"
)

// CadenceType tags a measure's cadential role.
type CadenceType string

const (
	CadenceNone      CadenceType = ""
	CadenceHalf      CadenceType = "half"
	CadenceAuthentic CadenceType = "authentic"
)

// Event is a single note or rest.
type Event struct {
	Rest     bool         `json:"rest,omitempty"`
	Pitch    theory.Pitch `json:"pitch,omitempty"`
	Degree   int          `json:"degree,omitempty"`
	Duration Duration     `json:"duration"`
	Tie      bool         `json:"tie,omitempty"`
	Function NoteFunction `json:"function,omitempty"`
}

// Measure is an ordered event list with an optional cadence tag. Event
// durations always sum to the meter's nominal measure length.
type Measure struct {
	Events  []Event     `json:"events"`
	Cadence CadenceType `json:"cadence,omitempty"`
}

// Sixtyfourths returns the summed event duration in sixty-fourth notes.
func (m Measure) Sixtyfourths() int {
	total := 0
	for _, e := range m.Events {
		total += e.Duration.Sixtyfourths()
	}
	return total
}

// LastSounding returns the index of the last non-rest event, or -1.
func (m Measure) LastSounding() int {
	for i := len(m.Events) - 1; i >= 0; i-- {
		if !m.Events[i].Rest {
			return i
		}
	}
	return -1
}

// Piece is a complete generated melodic period.
type Piece struct {
	Key      string    `json:"key"`
	Mode     string    `json:"mode"`
	Meter    Meter     `json:"meter"`
	Measures []Measure `json:"measures"`
}
