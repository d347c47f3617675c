// Package melody implements the note-by-note decision engine: candidate
// scoring across weighted theoretical criteria and the stateful pitch
// selector that places octaves and recovers from leaps.
package melody

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/cantus-labs/cantus-api/internal/theory"
)

// MetricStrength classifies an onset's metric weight.
type MetricStrength string

const (
	StrengthStrong      MetricStrength = "strong"
	StrengthSemiStrong  MetricStrength = "semi_strong"
	StrengthWeak        MetricStrength = "weak"
	StrengthSubdivision MetricStrength = "subdivision"
)

// PhrasePosition locates an onset within its phrase arc.
type PhrasePosition string

const (
	PositionBeginning         PhrasePosition = "beginning"
	PositionMiddle            PhrasePosition = "middle"
	PositionApproachingClimax PhrasePosition = "approaching_climax"
	PositionClimax            PhrasePosition = "climax"
	PositionPostClimax        PhrasePosition = "post_climax"
	PositionCadence           PhrasePosition = "cadence"
	PositionFinal             PhrasePosition = "final"
)

// Candidate is one scored (degree, octave) option for an onset.
type Candidate struct {
	Degree int          `json:"degree"`
	Octave int          `json:"octave"`
	Pitch  theory.Pitch `json:"pitch"`

	VoiceLeading float64 `json:"voice_leading"`
	Harmonic     float64 `json:"harmonic"`
	Contour      float64 `json:"contour"`
	Tendency     float64 `json:"tendency"`
	Markov       float64 `json:"markov"`
	Variety      float64 `json:"variety"`
	Range        float64 `json:"range"`

	Total float64 `json:"total"`
}

// Weights blends the seven scoring criteria. They are expected to sum to 1.
type Weights struct {
	VoiceLeading float64 `json:"voice_leading"`
	Harmonic     float64 `json:"harmonic"`
	Contour      float64 `json:"contour"`
	Tendency     float64 `json:"tendency"`
	Markov       float64 `json:"markov"`
	Variety      float64 `json:"variety"`
	Range        float64 `json:"range"`
}

// DefaultWeights returns the standard criterion blend.
func DefaultWeights() Weights {
	return Weights{
		VoiceLeading: 0.28,
		Harmonic:     0.22,
		Contour:      0.15,
		Tendency:     0.12,
		Markov:       0.10,
		Variety:      0.08,
		Range:        0.05,
	}
}

// Normalized zeroes the markov weight when no oracle is present and scales
// the remaining weights back to a unit sum. Centralizing absence handling
// here keeps the per-onset scoring free of oracle-presence branches.
func (w Weights) Normalized(oraclePresent bool) Weights {
	if oraclePresent {
		return w
	}
	rest := w.VoiceLeading + w.Harmonic + w.Contour + w.Tendency + w.Variety + w.Range
	if rest <= 0 {
		return w
	}
	f := 1.0 / rest
	return Weights{
		VoiceLeading: w.VoiceLeading * f,
		Harmonic:     w.Harmonic * f,
		Contour:      w.Contour * f,
		Tendency:     w.Tendency * f,
		Markov:       0,
		Variety:      w.Variety * f,
		Range:        w.Range * f,
	}
}

// WithMarkov substitutes the markov weight and rescales the other six
// criteria so the vector keeps its unit sum.
func (w Weights) WithMarkov(markov float64) Weights {
	rest := w.VoiceLeading + w.Harmonic + w.Contour + w.Tendency + w.Variety + w.Range
	if rest <= 0 {
		w.Markov = markov
		return w
	}
	f := (1 - markov) / rest
	return Weights{
		VoiceLeading: w.VoiceLeading * f,
		Harmonic:     w.Harmonic * f,
		Contour:      w.Contour * f,
		Tendency:     w.Tendency * f,
		Markov:       markov,
		Variety:      w.Variety * f,
		Range:        w.Range * f,
	}
}

// Scorer evaluates note candidates for one generation run.
type Scorer struct {
	scale   *theory.Scale
	weights Weights
	oracle  Oracle
	rng     *rand.Rand

	recentDegrees []int
	maxHistory    int
}

// NewScorer builds a scorer. The oracle may be nil; its weight is folded
// into the others.
func NewScorer(scale *theory.Scale, weights Weights, oracle Oracle, rng *rand.Rand) *Scorer {
	return &Scorer{
		scale:      scale,
		weights:    weights.Normalized(oracle != nil),
		oracle:     oracle,
		rng:        rng,
		maxHistory: 8,
	}
}

// GenerateCandidates scores every in-range (degree, octave) pair around the
// last pitch and returns them sorted best first. targetDegree 0 means no
// contour plan applies to this onset.
func (s *Scorer) GenerateCandidates(lastPitch *theory.Pitch, targetDegree int,
	strength MetricStrength, position PhrasePosition, chordTones []int) []Candidate {

	octaves := []int{4}
	if lastPitch != nil {
		octaves = []int{lastPitch.Octave - 1, lastPitch.Octave, lastPitch.Octave + 1}
	}

	markovByDegree := s.markovProbabilities()

	var candidates []Candidate
	for degree := 1; degree <= 7; degree++ {
		for _, octave := range octaves {
			p := s.scale.PitchForDegree(degree, octave)
			if !s.scale.InRange(p) {
				continue
			}
			c := Candidate{Degree: degree, Octave: octave, Pitch: p}
			c.VoiceLeading = s.scoreVoiceLeading(p, lastPitch)
			c.Harmonic = scoreHarmonic(degree, chordTones, strength)
			c.Contour = scoreContour(degree, targetDegree, position)
			c.Tendency = s.scoreTendency(degree, lastPitch)
			c.Markov = markovByDegree[degree]
			c.Variety = s.scoreVariety(degree)
			c.Range = s.scoreRange(p)
			c.Total = c.VoiceLeading*s.weights.VoiceLeading +
				c.Harmonic*s.weights.Harmonic +
				c.Contour*s.weights.Contour +
				c.Tendency*s.weights.Tendency +
				c.Markov*s.weights.Markov +
				c.Variety*s.weights.Variety +
				c.Range*s.weights.Range
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Total > candidates[j].Total
	})
	return candidates
}

// markovProbabilities queries the oracle per degree and normalizes against
// the set maximum. Without an oracle every degree is neutral.
func (s *Scorer) markovProbabilities() map[int]float64 {
	probs := make(map[int]float64, 7)
	if s.oracle == nil {
		for d := 1; d <= 7; d++ {
			probs[d] = 0.5
		}
		return probs
	}
	maxProb := 0.0
	for d := 1; d <= 7; d++ {
		p := s.oracle.ProbabilityForDegree(d)
		probs[d] = p
		if p > maxProb {
			maxProb = p
		}
	}
	for d := 1; d <= 7; d++ {
		if maxProb > 0 {
			probs[d] /= maxProb
		} else {
			probs[d] = 0.5
		}
	}
	return probs
}

func (s *Scorer) scoreVoiceLeading(p theory.Pitch, lastPitch *theory.Pitch) float64 {
	if lastPitch == nil {
		return 0.8
	}
	switch intv := absInt(p.MIDI() - lastPitch.MIDI()); {
	case intv == 0:
		return 0.6
	case intv <= 2:
		return 1.0
	case intv <= 4:
		return 0.85
	case intv <= 5:
		return 0.7
	case intv <= 7:
		return 0.5
	case intv <= 9:
		return 0.3
	default:
		return 0.1
	}
}

func scoreHarmonic(degree int, chordTones []int, strength MetricStrength) float64 {
	isChordTone := false
	for _, t := range chordTones {
		if t == degree {
			isChordTone = true
			break
		}
	}
	switch strength {
	case StrengthStrong:
		if isChordTone {
			return 1.0
		}
		return 0.3
	case StrengthSemiStrong:
		if isChordTone {
			return 0.9
		}
		return 0.5
	default:
		if isChordTone {
			return 0.8
		}
		return 0.7
	}
}

func scoreContour(degree, targetDegree int, position PhrasePosition) float64 {
	if targetDegree == 0 {
		return 0.5
	}
	distance := absInt(degree - targetDegree)
	if position == PositionClimax || position == PositionFinal {
		switch distance {
		case 0:
			return 1.0
		case 1:
			return 0.6
		default:
			return 0.2
		}
	}
	return math.Max(0.3, 1.0-float64(distance)*0.15)
}

// scoreTendency rewards resolving the previous onset's tendency tone and
// penalizes leaving it hanging.
func (s *Scorer) scoreTendency(degree int, lastPitch *theory.Pitch) float64 {
	if lastPitch == nil || len(s.recentDegrees) == 0 {
		return 0.7
	}
	lastDegree := s.recentDegrees[len(s.recentDegrees)-1]
	resolution, ok := s.scale.TendencyResolutions()[lastDegree]
	if !ok {
		return 0.7
	}
	if degree == resolution {
		return 1.0
	}
	return 0.3
}

func (s *Scorer) scoreVariety(degree int) float64 {
	if len(s.recentDegrees) == 0 {
		return 0.8
	}
	count := 0
	for _, d := range s.recentDegrees {
		if d == degree {
			count++
		}
	}
	switch count {
	case 0:
		return 1.0
	case 1:
		return 0.8
	case 2:
		return 0.5
	default:
		return 0.2
	}
}

func (s *Scorer) scoreRange(p theory.Pitch) float64 {
	low, top := s.scale.RangeMIDI()
	center := float64(low+top) / 2
	halfSpan := float64(top-low) / 2
	distance := math.Abs(float64(p.MIDI())-center) / halfSpan
	return math.Max(0.2, 1.0-distance*0.5)
}

// SelectBest picks among the top five candidates. Temperature 0 always
// takes the best; higher temperatures flatten the distribution.
func (s *Scorer) SelectBest(candidates []Candidate, temperature float64) (Candidate, error) {
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("no candidates available")
	}
	if temperature == 0 || len(candidates) == 1 {
		return candidates[0], nil
	}

	topN := len(candidates)
	if topN > 5 {
		topN = 5
	}
	top := candidates[:topN]

	minScore := top[0].Total
	for _, c := range top {
		if c.Total < minScore {
			minScore = c.Total
		}
	}

	weights := make([]float64, topN)
	total := 0.0
	for i, c := range top {
		weights[i] = math.Pow(c.Total-minScore+0.01, 1.0/(temperature+0.1))
		total += weights[i]
	}

	r := s.rng.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return top[i], nil
		}
	}
	return top[topN-1], nil
}

// UpdateHistory folds an emitted degree into the variety window and the
// oracle's context.
func (s *Scorer) UpdateHistory(degree int) {
	s.recentDegrees = append(s.recentDegrees, degree)
	if len(s.recentDegrees) > s.maxHistory {
		s.recentDegrees = s.recentDegrees[1:]
	}
	if s.oracle != nil {
		s.oracle.UpdateHistory(degree)
	}
}

// RecentDegrees exposes the variety window, most recent last.
func (s *Scorer) RecentDegrees() []int {
	return s.recentDegrees
}

// Reset clears history at the start of a new melody.
func (s *Scorer) Reset() {
	s.recentDegrees = nil
	if s.oracle != nil {
		s.oracle.ResetHistory()
	}
}

// PhraseContour precomputes target degrees for each onset of a phrase. The
// contour criterion pulls candidates toward these targets.
type PhraseContour struct {
	Length         int
	StartDegree    int
	ClimaxPosition float64
	ClimaxDegree   int
	EndDegree      int

	Targets []int
}

// PlanTargets interpolates start-climax-end anchors across the phrase,
// clamping targets into the playable degree range.
func (c *PhraseContour) PlanTargets() {
	c.Targets = make([]int, 0, c.Length)
	climaxIdx := int(float64(c.Length) * c.ClimaxPosition)

	for i := 0; i < c.Length; i++ {
		switch {
		case i == 0:
			c.Targets = append(c.Targets, c.StartDegree)
		case i == c.Length-1:
			c.Targets = append(c.Targets, c.EndDegree)
		case i == climaxIdx:
			c.Targets = append(c.Targets, c.ClimaxDegree)
		case i < climaxIdx:
			progress := float64(i) / float64(climaxIdx)
			target := c.StartDegree + int(float64(c.ClimaxDegree-c.StartDegree)*progress)
			c.Targets = append(c.Targets, clampDegree(target))
		default:
			progress := float64(i-climaxIdx) / float64(c.Length-1-climaxIdx)
			target := c.ClimaxDegree + int(float64(c.EndDegree-c.ClimaxDegree)*progress)
			c.Targets = append(c.Targets, clampDegree(target))
		}
	}
}

// PhraseRole distinguishes the two halves of a period.
type PhraseRole string

const (
	RoleAntecedent PhraseRole = "antecedent"
	RoleConsequent PhraseRole = "consequent"
)

// PlanPhraseContour builds the target arc for a phrase of the given onset
// length. Antecedents rise to the dominant and settle toward a half-cadence
// feel; consequents climb higher once the period climax has been reached
// and close on the tonic.
func PlanPhraseContour(length int, role PhraseRole, climaxReached bool) *PhraseContour {
	c := &PhraseContour{Length: length, StartDegree: 1}
	if role == RoleAntecedent {
		c.ClimaxPosition = 0.6
		c.ClimaxDegree = 5
		c.EndDegree = 2
	} else {
		c.ClimaxPosition = 0.5
		c.ClimaxDegree = 5
		if climaxReached {
			c.ClimaxDegree = 6
		}
		c.EndDegree = 1
	}
	c.PlanTargets()
	return c
}

func clampDegree(d int) int {
	if d < 1 {
		return 1
	}
	if d > 7 {
		return 7
	}
	return d
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
