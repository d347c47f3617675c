package melody

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantus-labs/cantus-api/internal/score"
	"github.com/cantus-labs/cantus-api/internal/theory"
)

func newTestSelector(t *testing.T, cfg SelectorConfig, seed int64) (*Selector, *theory.Scale) {
	t.Helper()
	scale, err := theory.NewScale("C", theory.ModeMajor)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	harmony := theory.NewHarmonyModel(theory.ModeMajor, 8, []int{0}, rng)
	scorer := NewScorer(scale, DefaultWeights(), nil, rng)
	sel := NewSelector(scale, harmony, scorer, cfg, 8, score.Meter{Beats: 4, Unit: 4}, rng)
	return sel, scale
}

func defaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		MaxInterval:     9,
		InfractionRate:  0.1,
		UseRests:        true,
		RestProbability: 0.15,
		Impulse:         score.ImpulseTetic,
		Temperature:     0.3,
		ClimaxPosition:  0.75,
	}
}

func selectorOnset(measure, beat, note int, strong bool) Onset {
	strength := StrengthWeak
	if strong {
		strength = StrengthStrong
	}
	return Onset{
		MeasureIndex: measure,
		BeatIndex:    beat,
		Strong:       strong,
		NoteIndex:    note,
		Strength:     strength,
		Position:     PositionMiddle,
	}
}

func TestSelectPitchStaysInRange(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		sel, scale := newTestSelector(t, defaultSelectorConfig(), seed)
		for m := 0; m < 8; m++ {
			for b := 0; b < 4; b++ {
				p, _, _ := sel.SelectPitch(selectorOnset(m, b, b, b == 0))
				assert.True(t, scale.InRange(p), "seed %d measure %d beat %d pitch %s", seed, m, b, p)
			}
		}
	}
}

func TestLeapRecovery(t *testing.T) {
	for seed := int64(0); seed < 15; seed++ {
		sel, _ := newTestSelector(t, defaultSelectorConfig(), seed)

		var pitches []theory.Pitch
		for m := 0; m < 8; m++ {
			for b := 0; b < 4; b++ {
				p, _, _ := sel.SelectPitch(selectorOnset(m, b, b, b == 0))
				pitches = append(pitches, p)
			}
		}

		for i := 2; i < len(pitches); i++ {
			leap := pitches[i-1].MIDI() - pitches[i-2].MIDI()
			if absInt(leap) <= 4 {
				continue
			}
			recovery := pitches[i].MIDI() - pitches[i-1].MIDI()
			if recovery == 0 {
				continue
			}
			// After a leap the line must not keep leaping the same way.
			if sign(recovery) == sign(leap) {
				assert.LessOrEqual(t, absInt(recovery), 9,
					"seed %d index %d: runaway same-direction leap", seed, i)
			}
		}
	}
}

func TestLeapRecoveryPrefersSmallContraryStep(t *testing.T) {
	sel, scale := newTestSelector(t, defaultSelectorConfig(), 3)

	// State after an upward leap C4 -> G4.
	leapTo := scale.PitchForDegree(5, 4)
	sel.lastPitch = &leapTo
	sel.currentOctave = 4
	sel.mustRecoverLeap = true
	sel.lastDirection = 1

	// The only contrary step of at most two semitones for pitch class F is
	// F4, a whole step below G4. The recovery search must find it.
	next := sel.adjustOctave(scale.PitchForDegree(4, 4), 2, false)
	delta := next.MIDI() - leapTo.MIDI()
	assert.Equal(t, -2, delta)
	assert.False(t, sel.mustRecoverLeap)
	assert.Equal(t, -1, sel.lastDirection)
}

func TestMaxIntervalDropsWideOctave(t *testing.T) {
	cfg := defaultSelectorConfig()
	cfg.MaxInterval = 6
	sel, scale := newTestSelector(t, cfg, 3)

	last := scale.PitchForDegree(1, 4) // C4
	sel.lastPitch = &last
	sel.currentOctave = 4

	// A4 would be a major sixth up, past the cap, so the search must settle
	// on A3 instead.
	placed := sel.adjustOctave(scale.PitchForDegree(6, 4), 1, false)
	assert.Equal(t, "A3", placed.String())
}

func TestWideIntervalRedirectedDown(t *testing.T) {
	cfg := defaultSelectorConfig()
	cfg.MaxInterval = 6
	sel, scale := newTestSelector(t, cfg, 3)

	last := scale.PitchForDegree(3, 4) // E4
	sel.lastPitch = &last
	sel.currentOctave = 4

	// A minor seventh up to D5 is filtered out, so the line drops to D4.
	placed := sel.adjustOctave(scale.PitchForDegree(2, 5), 1, false)
	assert.Equal(t, "D4", placed.String())
}

func TestForceDegreeUpdatesState(t *testing.T) {
	sel, scale := newTestSelector(t, defaultSelectorConfig(), 4)

	p, fn, d := sel.ForceDegree(5, 3)
	assert.Equal(t, score.FunctionStructural, fn)
	assert.True(t, d.Forced)
	assert.Equal(t, 5, scale.DegreeForPitch(p))
	assert.Equal(t, []int{5}, sel.scorer.RecentDegrees())
	require.NotNil(t, sel.lastPitch)
	assert.Equal(t, p, *sel.lastPitch)
}

func TestShouldRestNeverOnCadentialLanding(t *testing.T) {
	cfg := defaultSelectorConfig()
	cfg.RestProbability = 1.0
	sel, _ := newTestSelector(t, cfg, 5)

	for i := 0; i < 50; i++ {
		sel.SetLastWasRest(false)
		assert.False(t, sel.ShouldRest(7, 3, false, false), "final measure last beat")
		assert.False(t, sel.ShouldRest(3, 3, false, true), "antecedent-final measure last beat")
	}
}

func TestShouldRestNeverTwice(t *testing.T) {
	cfg := defaultSelectorConfig()
	cfg.RestProbability = 1.0
	sel, _ := newTestSelector(t, cfg, 6)

	sel.SetLastWasRest(true)
	for m := 0; m < 8; m++ {
		for b := 0; b < 4; b++ {
			assert.False(t, sel.ShouldRest(m, b, b == 0, false))
		}
	}
}

func TestShouldRestDisabled(t *testing.T) {
	cfg := defaultSelectorConfig()
	cfg.UseRests = false
	cfg.RestProbability = 1.0
	sel, _ := newTestSelector(t, cfg, 7)

	for m := 0; m < 8; m++ {
		for b := 0; b < 4; b++ {
			assert.False(t, sel.ShouldRest(m, b, b == 0, true))
		}
	}
}

func TestDecisionCarriesAlternatives(t *testing.T) {
	sel, _ := newTestSelector(t, defaultSelectorConfig(), 8)

	p, _, d := sel.SelectPitch(selectorOnset(0, 0, 0, true))
	assert.Equal(t, p, d.ChosenPitch)
	assert.NotEmpty(t, d.Alternatives)
	assert.Equal(t, 1, d.HarmonicDegree)
	assert.Equal(t, []int{1, 3, 5}, d.ChordTones)

	found := false
	for _, alt := range d.Alternatives {
		if alt.Degree == d.ChosenDegree {
			found = true
		}
	}
	assert.True(t, found, "chosen degree must come from the recorded candidate set")
}

func TestTenorisSubstitution(t *testing.T) {
	cfg := defaultSelectorConfig()
	cfg.UseTenoris = true
	cfg.TenorisProbability = 1.0
	cfg.InfractionRate = 1.0 // guarantees structural flips on weak beats

	seen := false
	for seed := int64(0); seed < 10 && !seen; seed++ {
		sel, scale := newTestSelector(t, cfg, seed)
		for m := 0; m < 8; m++ {
			for b := 0; b < 4; b++ {
				p, fn, d := sel.SelectPitch(selectorOnset(m, b, b, b == 0))
				if d.Forced && fn == score.FunctionStructural && d.ChosenDegree == 5 {
					seen = true
					assert.Equal(t, 5, scale.DegreeForPitch(p))
				}
			}
		}
	}
	assert.True(t, seen, "tenoris pedal should fire with probability 1")
}
