package melody

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantus-labs/cantus-api/internal/theory"
)

func newTestScorer(t *testing.T, oracle Oracle, seed int64) (*Scorer, *theory.Scale) {
	t.Helper()
	scale, err := theory.NewScale("C", theory.ModeMajor)
	require.NoError(t, err)
	return NewScorer(scale, DefaultWeights(), oracle, rand.New(rand.NewSource(seed))), scale
}

func TestWeightsNormalizedWithoutOracle(t *testing.T) {
	w := DefaultWeights().Normalized(false)

	assert.Zero(t, w.Markov)
	sum := w.VoiceLeading + w.Harmonic + w.Contour + w.Tendency + w.Variety + w.Range
	assert.InDelta(t, 1.0, sum, 1e-9)
	// Relative proportions survive the renormalization.
	assert.InDelta(t, 0.28/0.22, w.VoiceLeading/w.Harmonic, 1e-9)
}

func TestWeightsKeptWithOracle(t *testing.T) {
	w := DefaultWeights().Normalized(true)
	assert.Equal(t, DefaultWeights(), w)
}

func TestWithMarkovKeepsUnitSum(t *testing.T) {
	for _, markov := range []float64{0, 0.1, 0.3, 0.5} {
		w := DefaultWeights().WithMarkov(markov)

		assert.InDelta(t, markov, w.Markov, 1e-9)
		sum := w.VoiceLeading + w.Harmonic + w.Contour + w.Tendency + w.Markov + w.Variety + w.Range
		assert.InDelta(t, 1.0, sum, 1e-9, "markov=%v", markov)
		// Relative proportions of the other criteria survive.
		assert.InDelta(t, 0.28/0.22, w.VoiceLeading/w.Harmonic, 1e-9)
	}
}

func TestGenerateCandidatesFirstNote(t *testing.T) {
	s, scale := newTestScorer(t, nil, 1)
	cands := s.GenerateCandidates(nil, 0, StrengthStrong, PositionBeginning, []int{1, 3, 5})

	// First note: 7 degrees at the default octave, all in range.
	require.Len(t, cands, 7)
	for _, c := range cands {
		assert.Equal(t, 4, c.Octave)
		assert.True(t, scale.InRange(c.Pitch))
	}

	// Sorted best first.
	for i := 1; i < len(cands); i++ {
		assert.GreaterOrEqual(t, cands[i-1].Total, cands[i].Total)
	}

	// On a strong beat chord tones outrank neighbors.
	assert.Contains(t, []int{1, 3, 5}, cands[0].Degree)
}

func TestGenerateCandidatesStayInRange(t *testing.T) {
	s, scale := newTestScorer(t, nil, 2)
	last := scale.PitchForDegree(1, 4)
	cands := s.GenerateCandidates(&last, 0, StrengthWeak, PositionMiddle, []int{1, 3, 5})

	require.NotEmpty(t, cands)
	for _, c := range cands {
		assert.True(t, scale.InRange(c.Pitch), "candidate %s out of range", c.Pitch)
	}
}

func TestVoiceLeadingTable(t *testing.T) {
	s, scale := newTestScorer(t, nil, 3)
	last := scale.PitchForDegree(1, 4) // C4

	tests := []struct {
		pitch string
		want  float64
	}{
		{"C4", 0.6},  // unison
		{"D4", 1.0},  // second
		{"E4", 0.85}, // third
		{"F4", 0.7},  // fourth
		{"G4", 0.5},  // fifth
		{"A4", 0.3},  // sixth
		{"B4", 0.1},  // seventh
	}
	for _, tt := range tests {
		p, err := theory.ParsePitch(tt.pitch)
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.scoreVoiceLeading(p, &last), "interval to %s", tt.pitch)
	}
}

func TestTendencyScoring(t *testing.T) {
	s, _ := newTestScorer(t, nil, 4)
	last := theory.Pitch{Step: 'B', Octave: 4}

	// Leading tone in history: resolving to the tonic scores 1.0.
	s.UpdateHistory(7)
	assert.Equal(t, 1.0, s.scoreTendency(1, &last))
	assert.Equal(t, 0.3, s.scoreTendency(6, &last))

	// No tendency pending: neutral.
	s.UpdateHistory(5)
	assert.Equal(t, 0.7, s.scoreTendency(2, &last))
}

func TestVarietyPenalizesRepetition(t *testing.T) {
	s, _ := newTestScorer(t, nil, 5)
	assert.Equal(t, 0.8, s.scoreVariety(3))

	s.UpdateHistory(3)
	assert.Equal(t, 0.8, s.scoreVariety(3))
	s.UpdateHistory(3)
	assert.Equal(t, 0.5, s.scoreVariety(3))
	s.UpdateHistory(3)
	assert.Equal(t, 0.2, s.scoreVariety(3))
	assert.Equal(t, 1.0, s.scoreVariety(6))
}

func TestHistoryWindowIsBounded(t *testing.T) {
	s, _ := newTestScorer(t, nil, 6)
	for i := 0; i < 20; i++ {
		s.UpdateHistory(1 + i%7)
	}
	assert.Len(t, s.RecentDegrees(), 8)
}

func TestSelectBestZeroTemperature(t *testing.T) {
	s, _ := newTestScorer(t, nil, 7)
	cands := []Candidate{{Degree: 5, Total: 0.9}, {Degree: 1, Total: 0.5}}

	for i := 0; i < 10; i++ {
		got, err := s.SelectBest(cands, 0)
		require.NoError(t, err)
		assert.Equal(t, 5, got.Degree)
	}
}

func TestSelectBestEmpty(t *testing.T) {
	s, _ := newTestScorer(t, nil, 8)
	_, err := s.SelectBest(nil, 0.3)
	assert.Error(t, err)
}

func TestSelectBestSamplesTopFive(t *testing.T) {
	s, _ := newTestScorer(t, nil, 9)
	cands := make([]Candidate, 8)
	for i := range cands {
		cands[i] = Candidate{Degree: i + 1, Total: 1.0 - float64(i)*0.1}
	}
	for i := 0; i < 200; i++ {
		got, err := s.SelectBest(cands, 0.8)
		require.NoError(t, err)
		assert.LessOrEqual(t, got.Degree, 5, "selection must stay within the top five")
	}
}

func TestMarkovScoresNormalizedToSetMaximum(t *testing.T) {
	chain, err := NewDegreeChain(1)
	require.NoError(t, err)
	chain.Train([]int{1, 2, 1, 2, 1, 3})
	chain.UpdateHistory(1)

	s, _ := newTestScorer(t, chain, 10)
	probs := s.markovProbabilities()

	// After degree 1 the corpus moves to 2 twice and 3 once.
	assert.InDelta(t, 1.0, probs[2], 1e-9)
	assert.InDelta(t, 0.5, probs[3], 1e-9)
	assert.Zero(t, probs[5])
}

func TestDegreeChainProbabilities(t *testing.T) {
	chain, err := NewDegreeChain(2)
	require.NoError(t, err)
	chain.Train([]int{1, 2, 3, 1, 2, 5})

	chain.UpdateHistory(1)
	chain.UpdateHistory(2)
	assert.InDelta(t, 0.5, chain.ProbabilityForDegree(3), 1e-9)
	assert.InDelta(t, 0.5, chain.ProbabilityForDegree(5), 1e-9)
	assert.Zero(t, chain.ProbabilityForDegree(7))

	chain.ResetHistory()
	assert.InDelta(t, 1.0/7, chain.ProbabilityForDegree(3), 1e-9)
}

func TestDegreeChainRejectsBadOrder(t *testing.T) {
	for _, order := range []int{0, 4, -1} {
		_, err := NewDegreeChain(order)
		assert.Error(t, err, "order %d", order)
	}
}

func TestPhraseContourTargets(t *testing.T) {
	c := PlanPhraseContour(10, RoleAntecedent, false)
	require.Len(t, c.Targets, 10)

	assert.Equal(t, 1, c.Targets[0])
	assert.Equal(t, 2, c.Targets[9])
	assert.Equal(t, 5, c.Targets[6]) // climax at 60%

	for _, d := range c.Targets {
		assert.GreaterOrEqual(t, d, 1)
		assert.LessOrEqual(t, d, 7)
	}
}

func TestPhraseContourConsequent(t *testing.T) {
	low := PlanPhraseContour(8, RoleConsequent, false)
	high := PlanPhraseContour(8, RoleConsequent, true)

	assert.Equal(t, 5, low.ClimaxDegree)
	assert.Equal(t, 6, high.ClimaxDegree)
	assert.Equal(t, 1, low.Targets[len(low.Targets)-1])
	assert.Equal(t, 1, high.Targets[len(high.Targets)-1])
}

func TestContourScoring(t *testing.T) {
	assert.Equal(t, 0.5, scoreContour(3, 0, PositionMiddle))
	assert.Equal(t, 1.0, scoreContour(5, 5, PositionClimax))
	assert.Equal(t, 0.6, scoreContour(4, 5, PositionClimax))
	assert.Equal(t, 0.2, scoreContour(1, 5, PositionFinal))
	assert.InDelta(t, 0.85, scoreContour(4, 5, PositionMiddle), 1e-9)
	assert.InDelta(t, math.Max(0.3, 1.0-6*0.15), scoreContour(7, 1, PositionMiddle), 1e-9)
}
