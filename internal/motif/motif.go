// Package motif creates short melodic cells and applies the classical
// thematic development transforms to them.
package motif

import (
	"math/rand"

	"github.com/cantus-labs/cantus-api/internal/rhythm"
	"github.com/cantus-labs/cantus-api/internal/score"
	"github.com/cantus-labs/cantus-api/internal/theory"
)

// Variation names the classical motivic transforms.
type Variation int

const (
	Original Variation = iota
	Inversion
	Retrograde
	RetrogradeInversion
	Augmentation
	Diminution
	Transposition
	// Sequence behaves as Transposition. A true continuing sequence would
	// repeat the same shift across consecutive phrases; the single-motif
	// transform is identical.
	Sequence
)

var variationNames = map[Variation]string{
	Original:            "original",
	Inversion:           "inversion",
	Retrograde:          "retrograde",
	RetrogradeInversion: "retrograde_inversion",
	Augmentation:        "augmentation",
	Diminution:          "diminution",
	Transposition:       "transposition",
	Sequence:            "sequence",
}

func (v Variation) String() string {
	return variationNames[v]
}

// Motif is an immutable melodic cell. Transforms return new instances.
type Motif struct {
	Pitches   []theory.Pitch
	Intervals []int // semitone deltas, len = len(Pitches)-1
	Rhythm    rhythm.Pattern
	Degrees   []int
}

// Sixtyfourths returns the motif's total duration in sixty-fourth notes.
func (m Motif) Sixtyfourths() int {
	total := 0
	for _, d := range m.Rhythm.Durations {
		total += d.Sixtyfourths()
	}
	return total
}

func (m Motif) clone() Motif {
	out := Motif{
		Pitches:   append([]theory.Pitch(nil), m.Pitches...),
		Intervals: append([]int(nil), m.Intervals...),
		Degrees:   append([]int(nil), m.Degrees...),
	}
	out.Rhythm = rhythm.Pattern{
		Durations:   append([]score.Duration(nil), m.Rhythm.Durations...),
		StrongBeats: m.Rhythm.StrongBeats,
	}
	return out
}

// FreedomLevel bounds how far a variation may stray from the original.
type FreedomLevel int

const (
	FreedomStrict   FreedomLevel = 1
	FreedomModerate FreedomLevel = 2
	FreedomFree     FreedomLevel = 3
)

// Engine generates and varies motifs for one piece.
type Engine struct {
	scale         *theory.Scale
	harmony       *theory.HarmonyModel
	complexity    int
	freedom       FreedomLevel
	useVariations bool
	variationProb float64
	climaxMeasure int
	rng           *rand.Rand
}

// NewEngine builds a motif engine bound to one generation run.
func NewEngine(scale *theory.Scale, harmony *theory.HarmonyModel, complexity int,
	freedom FreedomLevel, useVariations bool, variationProb float64,
	climaxMeasure int, rng *rand.Rand) *Engine {
	return &Engine{
		scale:         scale,
		harmony:       harmony,
		complexity:    complexity,
		freedom:       freedom,
		useVariations: useVariations,
		variationProb: variationProb,
		climaxMeasure: climaxMeasure,
		rng:           rng,
	}
}

func pick[T any](rng *rand.Rand, options []T) T {
	return options[rng.Intn(len(options))]
}

// CreateBaseMotif seeds a 2-4 note melodic cell on a chord of the given
// harmonic degree, with a randomly chosen contour shape.
func (e *Engine) CreateBaseMotif(harmonicDegree int) Motif {
	lengthBeats := pick(e.rng, []int{1, 2})

	var durations []score.Duration
	if lengthBeats == 1 {
		if e.complexity <= 2 {
			durations = []score.Duration{{Num: 1, Den: 8}, {Num: 1, Den: 8}}
		} else {
			durations = pick(e.rng, [][]score.Duration{
				{{Num: 1, Den: 8}, {Num: 1, Den: 8}, {Num: 1, Den: 8}, {Num: 1, Den: 8}},
				{{Num: 1, Den: 8}, {Num: 3, Den: 16}},
				{{Num: 3, Den: 16}, {Num: 1, Den: 16}, {Num: 1, Den: 8}},
			})
		}
	} else {
		if e.complexity <= 2 {
			durations = []score.Duration{{Num: 1, Den: 4}, {Num: 1, Den: 4}}
		} else {
			durations = pick(e.rng, [][]score.Duration{
				{{Num: 1, Den: 4}, {Num: 1, Den: 8}, {Num: 1, Den: 8}},
				{{Num: 3, Den: 8}, {Num: 1, Den: 8}},
				{{Num: 1, Den: 8}, {Num: 1, Den: 8}, {Num: 1, Den: 4}},
			})
		}
	}

	chordTones := e.harmony.ChordTones(harmonicDegree)
	contour := pick(e.rng, []string{"ascending", "descending", "arch", "inverted_arch"})

	numNotes := len(durations)
	m := Motif{Rhythm: rhythm.Pattern{Durations: durations, StrongBeats: []int{0}}}

	firstDegree := harmonicDegree
	if e.rng.Float64() >= 0.6 {
		firstDegree = pick(e.rng, chordTones)
	}
	m.Degrees = append(m.Degrees, firstDegree)
	m.Pitches = append(m.Pitches, e.scale.PitchForDegree(firstDegree, 4))

	for i := 1; i < numNotes; i++ {
		var step int
		switch contour {
		case "ascending":
			step = pick(e.rng, []int{1, 2, 3, 4})
		case "descending":
			step = -pick(e.rng, []int{1, 2, 3, 4})
		case "arch":
			if i <= numNotes/2 {
				step = pick(e.rng, []int{1, 2, 3})
			} else {
				step = -pick(e.rng, []int{1, 2, 3})
			}
		default: // inverted arch
			if i <= numNotes/2 {
				step = -pick(e.rng, []int{1, 2, 3})
			} else {
				step = pick(e.rng, []int{1, 2, 3})
			}
		}

		next := e.reclamp(m.Pitches[len(m.Pitches)-1].Transpose(step))
		m.Pitches = append(m.Pitches, next)
		m.Intervals = append(m.Intervals, step)
		m.Degrees = append(m.Degrees, e.scale.DegreeForPitch(next))
	}

	return m
}

// reclamp pulls a pitch that left the melodic range back to a note near the
// violated boundary.
func (e *Engine) reclamp(p theory.Pitch) theory.Pitch {
	low, top := e.scale.RangeMIDI()
	switch {
	case p.MIDI() < low:
		return theory.PitchFromMIDI(low + pick(e.rng, []int{0, 2, 4}))
	case p.MIDI() > top:
		return theory.PitchFromMIDI(top - pick(e.rng, []int{0, 2, 4}))
	}
	return p
}

// VaryDegrees applies a pitch-shape transform to a degree sequence. Rhythm
// transforms leave degrees untouched.
func (e *Engine) VaryDegrees(degrees []int, v Variation) []int {
	switch v {
	case Inversion:
		if len(degrees) < 2 {
			return append([]int(nil), degrees...)
		}
		out := []int{degrees[0]}
		for i := 1; i < len(degrees); i++ {
			d := wrapDegree(out[len(out)-1] - (degrees[i] - degrees[i-1]))
			out = append(out, d)
		}
		return out
	case Retrograde:
		return reversed(degrees)
	case RetrogradeInversion:
		return e.VaryDegrees(reversed(degrees), Inversion)
	case Transposition, Sequence:
		shift := pick(e.rng, []int{2, 3, 4, 5})
		if e.rng.Intn(2) == 0 {
			shift = -shift
		}
		out := make([]int, len(degrees))
		for i, d := range degrees {
			out[i] = wrapDegree(d + shift)
		}
		return out
	default:
		return append([]int(nil), degrees...)
	}
}

// VaryRhythm applies augmentation or diminution to a duration list.
// Diminution bottoms out at denominator 32.
func (e *Engine) VaryRhythm(durations []score.Duration, v Variation) []score.Duration {
	out := make([]score.Duration, len(durations))
	for i, d := range durations {
		switch v {
		case Augmentation:
			den := d.Den / 2
			if den < 1 {
				den = 1
			}
			out[i] = score.Duration{Num: d.Num, Den: den}
		case Diminution:
			den := d.Den * 2
			if den > 32 {
				den = 32
			}
			out[i] = score.Duration{Num: d.Num, Den: den}
		default:
			out[i] = d
		}
	}
	return out
}

// SelectVariationType chooses a transform for a measure relative to the
// climax: dramatic transforms near it, tension builders before, relaxation
// after. Returns Original with probability 1 - variationProb.
func (e *Engine) SelectVariationType(measureIndex int) Variation {
	if !e.useVariations {
		return Original
	}
	if e.rng.Float64() > e.variationProb {
		return Original
	}

	dist := measureIndex - e.climaxMeasure
	if dist < 0 {
		dist = -dist
	}
	switch {
	case dist <= 1:
		return pick(e.rng, []Variation{Inversion, Augmentation, Sequence})
	case measureIndex < e.climaxMeasure:
		return pick(e.rng, []Variation{Transposition, Sequence, Original})
	default:
		return pick(e.rng, []Variation{Retrograde, Diminution, Original})
	}
}

// VariationPolicy names how much freedom ApplyVariation may take.
type VariationPolicy string

const (
	PolicyAuto     VariationPolicy = "auto"
	PolicyStrict   VariationPolicy = "strict"
	PolicyModerate VariationPolicy = "moderate"
	PolicyFree     VariationPolicy = "free"
)

// ApplyVariation produces a varied copy of a motif. The policy narrows the
// transform pool: strict keeps the motif recognizable, free allows all
// eight transforms.
func (e *Engine) ApplyVariation(m Motif, policy VariationPolicy) Motif {
	freedom := e.freedom
	switch policy {
	case PolicyStrict:
		freedom = FreedomStrict
	case PolicyModerate:
		freedom = FreedomModerate
	case PolicyFree:
		freedom = FreedomFree
	}

	var options []Variation
	var weights []float64
	switch freedom {
	case FreedomStrict:
		options = []Variation{Original, Retrograde, Transposition}
		weights = []float64{0.4, 0.3, 0.3}
	case FreedomModerate:
		options = []Variation{Original, Retrograde, Inversion, Transposition, Augmentation, Diminution}
		weights = []float64{0.2, 0.2, 0.2, 0.2, 0.1, 0.1}
	default:
		options = []Variation{Original, Inversion, Retrograde, RetrogradeInversion, Augmentation, Diminution, Transposition, Sequence}
		weights = make([]float64, len(options))
		for i := range weights {
			weights[i] = 1.0 / float64(len(options))
		}
	}

	return e.Transform(m, weightedPick(e.rng, options, weights))
}

func weightedPick(rng *rand.Rand, options []Variation, weights []float64) Variation {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return options[i]
		}
	}
	return options[len(options)-1]
}

// Transform applies one specific variation to a motif and returns the new
// instance. The original is never mutated.
func (e *Engine) Transform(m Motif, v Variation) Motif {
	switch v {
	case Original:
		return m

	case Retrograde:
		out := Motif{
			Pitches:   make([]theory.Pitch, len(m.Pitches)),
			Intervals: make([]int, len(m.Intervals)),
			Degrees:   reversed(m.Degrees),
			Rhythm:    m.Rhythm.Retrograde(),
		}
		for i, p := range m.Pitches {
			out.Pitches[len(m.Pitches)-1-i] = p
		}
		for i, iv := range m.Intervals {
			out.Intervals[len(m.Intervals)-1-i] = -iv
		}
		return out

	case Inversion:
		out := m.clone()
		if len(m.Pitches) < 2 {
			return out
		}
		out.Pitches = out.Pitches[:1]
		out.Degrees = out.Degrees[:1]
		out.Intervals = nil
		for _, iv := range m.Intervals {
			inverted := -iv
			next := e.reclamp(out.Pitches[len(out.Pitches)-1].Transpose(inverted))
			out.Intervals = append(out.Intervals, inverted)
			out.Pitches = append(out.Pitches, next)
			out.Degrees = append(out.Degrees, e.scale.DegreeForPitch(next))
		}
		return out

	case RetrogradeInversion:
		return e.Transform(e.Transform(m, Retrograde), Inversion)

	case Transposition, Sequence:
		shift := pick(e.rng, []int{2, 3, 4, 5})
		if e.rng.Intn(2) == 0 {
			shift = -shift
		}
		out := m.clone()
		for i, deg := range m.Degrees {
			newDeg := wrapDegree(deg + shift)
			p := e.scale.PitchForDegree(newDeg, m.Pitches[i].Octave)
			p = nearestOctave(p, m.Pitches[i])
			out.Pitches[i] = e.scale.ClampOctave(p)
			out.Degrees[i] = newDeg
		}
		out.Intervals = out.Intervals[:0]
		for i := 1; i < len(out.Pitches); i++ {
			out.Intervals = append(out.Intervals, theory.IntervalSemitones(out.Pitches[i-1], out.Pitches[i]))
		}
		return out

	case Augmentation, Diminution:
		out := m.clone()
		out.Rhythm.Durations = e.VaryRhythm(m.Rhythm.Durations, v)
		return out

	default:
		return m
	}
}

// nearestOctave shifts p by whole octaves to land as close as possible to
// the reference pitch.
func nearestOctave(p, ref theory.Pitch) theory.Pitch {
	best := p
	bestDist := absInt(p.MIDI() - ref.MIDI())
	for _, shift := range []int{-1, 1} {
		cand := p.WithOctave(p.Octave + shift)
		if d := absInt(cand.MIDI() - ref.MIDI()); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

func wrapDegree(d int) int {
	for d < 1 {
		d += 7
	}
	for d > 7 {
		d -= 7
	}
	return d
}

func reversed(in []int) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
