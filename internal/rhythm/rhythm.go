// Package rhythm generates pulse-anchored duration patterns. Every beat is
// subdivided independently, so no duration ever crosses a beat boundary,
// and one base motif per piece is reused across measures for cohesion.
package rhythm

import (
	"math/rand"

	"github.com/cantus-labs/cantus-api/internal/score"
)

// Pattern is one measure's worth of durations plus the beat indices that
// carry metric weight.
type Pattern struct {
	Durations   []score.Duration
	StrongBeats []int
}

// Retrograde returns a time-reversed copy of the pattern.
func (p Pattern) Retrograde() Pattern {
	rev := make([]score.Duration, len(p.Durations))
	for i, d := range p.Durations {
		rev[len(p.Durations)-1-i] = d
	}
	return Pattern{Durations: rev, StrongBeats: p.StrongBeats}
}

// Engine generates rhythmic patterns for one piece.
type Engine struct {
	meter       score.Meter
	complexity  int
	numMeasures int
	strongBeats []int
	baseMotif   *Pattern
	rng         *rand.Rand
}

// NewEngine builds a rhythm engine. Complexity runs 1 (plain) to 3 (busy).
func NewEngine(meter score.Meter, complexity, numMeasures int, rng *rand.Rand) *Engine {
	return &Engine{
		meter:       meter,
		complexity:  complexity,
		numMeasures: numMeasures,
		strongBeats: strongBeats(meter.EffectiveSubdivisions()),
		rng:         rng,
	}
}

// strongBeats returns the beat indices that start a subdivision group:
// cumulative sums of the group sizes, always including beat 0. For 5/8
// grouped [2,3] that is [0,2].
func strongBeats(subdivisions []int) []int {
	strong := []int{0}
	acc := 0
	for _, s := range subdivisions[:len(subdivisions)-1] {
		acc += s
		strong = append(strong, acc)
	}
	return strong
}

// StrongBeats returns the strong beat indices for this meter.
func (e *Engine) StrongBeats() []int {
	return e.strongBeats
}

// IsStrongBeat reports whether a beat index is metrically strong.
func (e *Engine) IsStrongBeat(beat int) bool {
	for _, b := range e.strongBeats {
		if b == beat {
			return true
		}
	}
	return false
}

// CreatePattern subdivides numBeats pulses into durations.
func (e *Engine) CreatePattern(numBeats int) Pattern {
	var durations []score.Duration
	sixteenthsPerBeat := 16 / e.meter.Unit
	for beat := 0; beat < numBeats; beat++ {
		durations = append(durations, e.subdivideBeat(sixteenthsPerBeat, e.IsStrongBeat(beat))...)
	}
	return Pattern{Durations: durations, StrongBeats: e.strongBeats}
}

func (e *Engine) subdivideBeat(sixteenths int, strong bool) []score.Duration {
	switch sixteenths {
	case 4:
		return e.subdivideQuarterBeat(strong)
	case 2:
		return e.subdivideEighthBeat(strong)
	case 6:
		return e.subdivideDottedQuarterBeat(strong)
	case 8:
		// Half-note pulse: two quarter groups keeps the grid even.
		return append(e.subdivideQuarterBeat(strong), e.subdivideQuarterBeat(false)...)
	default:
		return []score.Duration{{Num: sixteenths, Den: 16}}
	}
}

func (e *Engine) subdivideQuarterBeat(strong bool) []score.Duration {
	quarter := []score.Duration{{Num: 1, Den: 4}}
	eighths := []score.Duration{{Num: 1, Den: 8}, {Num: 1, Den: 8}}
	dotted := []score.Duration{{Num: 3, Den: 16}, {Num: 1, Den: 16}}
	sixteenths := []score.Duration{{Num: 1, Den: 16}, {Num: 1, Den: 16}, {Num: 1, Den: 16}, {Num: 1, Den: 16}}

	switch e.complexity {
	case 1:
		if strong || e.rng.Float64() < 0.7 {
			return quarter
		}
		return eighths
	case 2:
		if strong {
			if e.rng.Float64() < 0.8 {
				return quarter
			}
			return eighths
		}
		switch r := e.rng.Float64(); {
		case r < 0.4:
			return quarter
		case r < 0.8:
			return eighths
		default:
			return dotted
		}
	default:
		if strong {
			if e.rng.Float64() < 0.7 {
				return quarter
			}
			return eighths
		}
		switch r := e.rng.Float64(); {
		case r < 0.3:
			return quarter
		case r < 0.5:
			return eighths
		case r < 0.7:
			return dotted
		default:
			return sixteenths
		}
	}
}

func (e *Engine) subdivideEighthBeat(strong bool) []score.Duration {
	if strong || e.complexity <= 2 || e.rng.Float64() < 0.7 {
		return []score.Duration{{Num: 1, Den: 8}}
	}
	return []score.Duration{{Num: 1, Den: 16}, {Num: 1, Den: 16}}
}

func (e *Engine) subdivideDottedQuarterBeat(strong bool) []score.Duration {
	dottedQuarter := []score.Duration{{Num: 3, Den: 8}}
	threeEighths := []score.Duration{{Num: 1, Den: 8}, {Num: 1, Den: 8}, {Num: 1, Den: 8}}
	eighthQuarter := []score.Duration{{Num: 1, Den: 8}, {Num: 1, Den: 4}}

	switch e.complexity {
	case 1:
		if strong || e.rng.Float64() < 0.7 {
			return dottedQuarter
		}
		return threeEighths
	case 2:
		if strong {
			if e.rng.Float64() < 0.8 {
				return dottedQuarter
			}
			return threeEighths
		}
		switch r := e.rng.Float64(); {
		case r < 0.4:
			return dottedQuarter
		case r < 0.7:
			return threeEighths
		default:
			return eighthQuarter
		}
	default:
		if strong {
			if e.rng.Float64() < 0.7 {
				return dottedQuarter
			}
			return threeEighths
		}
		switch r := e.rng.Float64(); {
		case r < 0.25:
			return dottedQuarter
		case r < 0.5:
			return threeEighths
		case r < 0.75:
			return eighthQuarter
		default:
			six := make([]score.Duration, 6)
			for i := range six {
				six[i] = score.Duration{Num: 1, Den: 16}
			}
			return six
		}
	}
}

// InitBaseMotif fixes the rhythmic motif the rest of the piece reuses.
func (e *Engine) InitBaseMotif() {
	p := e.CreatePattern(e.meter.Beats)
	e.baseMotif = &p
}

// BaseMotif returns the piece's base rhythmic motif, creating it if needed.
func (e *Engine) BaseMotif() Pattern {
	if e.baseMotif == nil {
		e.InitBaseMotif()
	}
	return *e.baseMotif
}

// PatternForMeasure returns the rhythm for a measure. Measures 0 and 1 and
// the cadential measures present the base motif verbatim; elsewhere the
// motif returns unchanged 70% of the time and retrograded 30%.
func (e *Engine) PatternForMeasure(measureIndex int) Pattern {
	if e.baseMotif == nil {
		return e.CreatePattern(e.meter.Beats)
	}

	if measureIndex == 0 || measureIndex == 1 {
		return *e.baseMotif
	}

	midpoint := e.numMeasures / 2
	if measureIndex == midpoint-1 || measureIndex == e.numMeasures-1 {
		return *e.baseMotif
	}

	if e.rng.Float64() < 0.3 {
		return e.baseMotif.Retrograde()
	}
	return *e.baseMotif
}
