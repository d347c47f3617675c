package melody

import (
	"math/rand"

	"github.com/cantus-labs/cantus-api/internal/score"
	"github.com/cantus-labs/cantus-api/internal/theory"
)

// SelectorConfig carries the per-run tuning knobs of the pitch selector.
type SelectorConfig struct {
	MaxInterval        int
	UseTenoris         bool
	TenorisProbability float64
	InfractionRate     float64
	UseRests           bool
	RestProbability    float64
	Impulse            score.ImpulseType
	Temperature        float64
	ClimaxPosition     float64
}

// Onset describes one slot in the rhythm grid for pitch selection.
type Onset struct {
	MeasureIndex int
	BeatIndex    int
	Strong       bool
	NoteIndex    int
	TargetDegree int // 0 when no contour plan applies
	Strength     MetricStrength
	Position     PhrasePosition
}

// Decision records the provenance of one onset's choice: the winner, the
// scored alternatives and the context, enough for an external corrector to
// swap the onset without re-running the generation.
type Decision struct {
	MeasureIndex   int            `json:"measure_index"`
	OnsetIndex     int            `json:"onset_index"`
	BeatIndex      int            `json:"beat_index"`
	HarmonicDegree int            `json:"harmonic_degree"`
	ChordTones     []int          `json:"chord_tones"`
	Strength       MetricStrength `json:"strength"`
	Position       PhrasePosition `json:"position"`
	TargetDegree   int            `json:"target_degree,omitempty"`

	ChosenDegree int          `json:"chosen_degree"`
	ChosenPitch  theory.Pitch `json:"chosen_pitch"`
	Function     string       `json:"function"`
	Forced       bool         `json:"forced,omitempty"`
	Alternatives []Candidate  `json:"alternatives,omitempty"`
}

// Selector owns the sequential melodic state of one generation run. Its
// state is a linear fold over onsets and must be driven strictly in order.
type Selector struct {
	scale   *theory.Scale
	harmony *theory.HarmonyModel
	scorer  *Scorer
	cfg     SelectorConfig
	rng     *rand.Rand

	numMeasures int
	meterBeats  int

	currentOctave     int
	lastPitch         *theory.Pitch
	lastDirection     int
	mustRecoverLeap   bool
	infractionPending bool
	lastWasRest       bool

	climaxMeasure int
	climaxReached bool
	highestPitch  *theory.Pitch
}

// NewSelector builds the selector for one period.
func NewSelector(scale *theory.Scale, harmony *theory.HarmonyModel, scorer *Scorer,
	cfg SelectorConfig, numMeasures int, meter score.Meter, rng *rand.Rand) *Selector {
	return &Selector{
		scale:         scale,
		harmony:       harmony,
		scorer:        scorer,
		cfg:           cfg,
		rng:           rng,
		numMeasures:   numMeasures,
		meterBeats:    meter.Beats,
		currentOctave: 4,
		climaxMeasure: int(float64(numMeasures) * cfg.ClimaxPosition),
	}
}

// ClimaxMeasure returns the measure index the climax is planned for.
func (s *Selector) ClimaxMeasure() int {
	return s.climaxMeasure
}

// ClimaxReached reports whether the running highest pitch landed on the
// climax measure.
func (s *Selector) ClimaxReached() bool {
	return s.climaxReached
}

// SelectPitch chooses the pitch for one onset and returns it with its
// melodic function and the full decision record.
func (s *Selector) SelectPitch(o Onset) (theory.Pitch, score.NoteFunction, Decision) {
	harmonicDegree := s.harmony.FunctionAt(o.MeasureIndex, o.BeatIndex)
	chordTones := s.harmony.ChordTones(harmonicDegree)

	structural := o.Strong
	if s.infractionPending {
		structural = true
		s.infractionPending = false
	} else if s.rng.Float64() < s.cfg.InfractionRate {
		structural = !structural
		s.infractionPending = true
	}

	decision := Decision{
		MeasureIndex:   o.MeasureIndex,
		OnsetIndex:     o.NoteIndex,
		BeatIndex:      o.BeatIndex,
		HarmonicDegree: harmonicDegree,
		ChordTones:     chordTones,
		Strength:       o.Strength,
		Position:       o.Position,
		TargetDegree:   o.TargetDegree,
	}

	// Tenoris: a sustained dominant pedal slipped into structural slots off
	// the strong beat.
	if s.cfg.UseTenoris && structural && !o.Strong && s.rng.Float64() < s.cfg.TenorisProbability {
		p := s.placePitch(s.scale.PitchForDegree(5, s.currentOctave), o.MeasureIndex, true)
		s.scorer.UpdateHistory(5)
		decision.ChosenDegree = 5
		decision.ChosenPitch = p
		decision.Function = string(score.FunctionStructural)
		decision.Forced = true
		return p, score.FunctionStructural, decision
	}

	candidates := s.scorer.GenerateCandidates(s.lastPitch, o.TargetDegree, o.Strength, o.Position, chordTones)
	if structural {
		boostChordTones(candidates, chordTones)
	}

	chosen, err := s.scorer.SelectBest(candidates, s.cfg.Temperature)
	if err != nil {
		// Degenerate configuration: no in-range candidate. Emit the clamped
		// tonic rather than aborting the period.
		chosen = Candidate{Degree: 1, Pitch: s.scale.ClampOctave(s.scale.PitchForDegree(1, s.currentOctave))}
	}

	p := s.placePitch(chosen.Pitch, o.MeasureIndex, structural)
	function := s.classify(chosen.Degree, chordTones, structural)
	s.scorer.UpdateHistory(chosen.Degree)

	decision.ChosenDegree = chosen.Degree
	decision.ChosenPitch = p
	decision.Function = string(function)
	decision.Alternatives = candidates
	return p, function, decision
}

// ForceDegree bypasses scoring for cadential gestures. Octave placement
// still runs so the forced degrees join the line smoothly.
func (s *Selector) ForceDegree(degree, measureIndex int) (theory.Pitch, score.NoteFunction, Decision) {
	p := s.placePitch(s.scale.PitchForDegree(degree, s.currentOctave), measureIndex, true)
	s.scorer.UpdateHistory(degree)
	return p, score.FunctionStructural, Decision{
		MeasureIndex: measureIndex,
		ChosenDegree: degree,
		ChosenPitch:  p,
		Function:     string(score.FunctionStructural),
		Forced:       true,
	}
}

func boostChordTones(candidates []Candidate, chordTones []int) {
	for i := range candidates {
		for _, t := range chordTones {
			if candidates[i].Degree == t {
				candidates[i].Total *= 1.3
				break
			}
		}
	}
	// Re-sort after the boost; insertion keeps it cheap for near-sorted data.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].Total > candidates[j-1].Total; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
}

func (s *Selector) classify(degree int, chordTones []int, structural bool) score.NoteFunction {
	for _, t := range chordTones {
		if degree == t {
			return score.FunctionStructural
		}
	}
	if structural {
		return score.FunctionStructural
	}
	recent := s.scorer.RecentDegrees()
	if len(recent) >= 2 && recent[len(recent)-2] == degree {
		return score.FunctionNeighbor
	}
	return score.FunctionPassing
}

// placePitch finalizes the octave of a chosen pitch class against the
// running contour state, then updates that state.
func (s *Selector) placePitch(p theory.Pitch, measureIndex int, structural bool) theory.Pitch {
	result := s.adjustOctave(p, measureIndex, structural)
	s.currentOctave = result.Octave
	s.lastPitch = &result
	return result
}

func (s *Selector) adjustOctave(p theory.Pitch, measureIndex int, structural bool) theory.Pitch {
	if s.lastPitch == nil {
		for _, octave := range []int{3, 4, 5} {
			if test := p.WithOctave(octave); s.scale.InRange(test) {
				return test
			}
		}
		return p
	}
	last := *s.lastPitch

	// Leap recovery: hunt for the smallest contrary step of at most two
	// semitones before considering anything else.
	if s.mustRecoverLeap && s.lastDirection != 0 {
		bestOctave, bestInterval := p.Octave, 100
		for _, adj := range []int{-1, 0, 1} {
			test := p.WithOctave(p.Octave + adj)
			if !s.scale.InRange(test) {
				continue
			}
			delta := test.MIDI() - last.MIDI()
			dir := sign(delta)
			if dir == 0 || dir == s.lastDirection {
				continue
			}
			if size := absInt(delta); size <= 2 && size < bestInterval {
				bestInterval = size
				bestOctave = p.Octave + adj
			}
		}
		if bestInterval < 100 {
			result := p.WithOctave(bestOctave)
			s.lastDirection = sign(result.MIDI() - last.MIDI())
			s.mustRecoverLeap = false
			s.trackHighest(result, measureIndex)
			return result
		}
	}

	bestOctave, bestScore := p.Octave, 100
	for _, adj := range []int{-1, 0, 1, 2} {
		test := p.WithOctave(p.Octave + adj)
		if !s.scale.InRange(test) {
			continue
		}
		size := absInt(test.MIDI() - last.MIDI())

		maxAllowed := s.cfg.MaxInterval
		if structural && measureIndex == s.climaxMeasure {
			// The climax may take a full octave leap.
			maxAllowed = 12
		} else if size > 9 {
			continue
		}
		if size > maxAllowed {
			continue
		}

		sc := size
		if size <= 2 {
			sc -= 10
		} else if size <= 5 {
			sc -= 5
		}
		if sc < bestScore {
			bestScore = sc
			bestOctave = p.Octave + adj
		}
	}

	result := p.WithOctave(bestOctave)
	if !s.scale.InRange(result) {
		result = s.scale.ClampOctave(result)
	}

	delta := result.MIDI() - last.MIDI()
	if absInt(delta) > 4 {
		s.mustRecoverLeap = true
		s.lastDirection = sign(delta)
	} else {
		s.lastDirection = sign(delta)
	}

	s.trackHighest(result, measureIndex)
	return result
}

func (s *Selector) trackHighest(p theory.Pitch, measureIndex int) {
	if s.highestPitch == nil || p.MIDI() > s.highestPitch.MIDI() {
		s.highestPitch = &p
		if measureIndex == s.climaxMeasure {
			s.climaxReached = true
		}
	}
}

// ShouldRest decides whether this onset becomes a rest. Cadential landings
// always sound, and rests never stack.
func (s *Selector) ShouldRest(measureIndex, beatIndex int, strong, phraseBoundary bool) bool {
	if !s.cfg.UseRests || s.lastWasRest {
		return false
	}

	isFinal := measureIndex == s.numMeasures-1
	isSemifinal := measureIndex == s.numMeasures/2-1
	isLastBeat := beatIndex >= s.meterBeats-1
	if (isFinal || isSemifinal) && isLastBeat {
		return false
	}

	if phraseBoundary && beatIndex == s.meterBeats-1 {
		return s.rng.Float64() < s.cfg.RestProbability*2
	}
	if s.cfg.Impulse == score.ImpulseAnacrustic && beatIndex == 0 && measureIndex%2 == 0 {
		return s.rng.Float64() < s.cfg.RestProbability*1.5
	}
	if s.cfg.Impulse == score.ImpulseAcephalous && strong && measureIndex%3 == 0 {
		return s.rng.Float64() < s.cfg.RestProbability*1.2
	}
	if !strong {
		return s.rng.Float64() < s.cfg.RestProbability*0.5
	}
	return false
}

// SetLastWasRest records whether the previous onset was a rest.
func (s *Selector) SetLastWasRest(v bool) {
	s.lastWasRest = v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
