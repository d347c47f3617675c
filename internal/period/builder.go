package period

import (
	"fmt"
	"math/rand"

	"github.com/cantus-labs/cantus-api/internal/logger"
	"github.com/cantus-labs/cantus-api/internal/melody"
	"github.com/cantus-labs/cantus-api/internal/motif"
	"github.com/cantus-labs/cantus-api/internal/rhythm"
	"github.com/cantus-labs/cantus-api/internal/score"
	"github.com/cantus-labs/cantus-api/internal/theory"
)

// Builder owns everything needed to generate one period: the scale and
// harmony models, the rhythm and motif engines, the pitch selector and the
// decision trace. One builder per generation; never reuse across pieces.
type Builder struct {
	cfg  Config
	mode theory.Mode
	rng  *rand.Rand

	scale    *theory.Scale
	harmony  *theory.HarmonyModel
	rhythms  *rhythm.Engine
	motifs   *motif.Engine
	selector *melody.Selector

	progression []theory.HarmonicFunction
	trace       *Trace
}

// NewBuilder wires a builder from a normalized, validated configuration.
// The oracle may be nil; criterion weights renormalize around its absence.
func NewBuilder(cfg Config, oracle melody.Oracle) (*Builder, error) {
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mode, err := theory.ParseMode(cfg.Mode)
	if err != nil {
		logger.Warn("unknown mode, falling back to major", logger.Fields{
			"mode": cfg.Mode,
		})
		mode = theory.ModeMajor
	}

	scale, err := theory.NewScale(cfg.Key, mode)
	if err != nil {
		return nil, fmt.Errorf("building scale: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	rhythms := rhythm.NewEngine(cfg.Meter, cfg.RhythmicComplexity, cfg.NumMeasures, rng)
	harmony := theory.NewHarmonyModel(mode, cfg.NumMeasures, rhythms.StrongBeats(), rng)

	if !cfg.Markov.Enabled {
		oracle = nil
	}
	weights := melody.DefaultWeights()
	if oracle != nil {
		weights = weights.WithMarkov(cfg.Markov.Weight)
	}
	scorer := melody.NewScorer(scale, weights, oracle, rng)

	impulse, _ := score.ParseImpulse(cfg.Impulse)
	selector := melody.NewSelector(scale, harmony, scorer, melody.SelectorConfig{
		MaxInterval:        cfg.MaxInterval,
		UseTenoris:         cfg.UseTenoris,
		TenorisProbability: cfg.TenorisProbability,
		InfractionRate:     cfg.InfractionRate,
		UseRests:           cfg.UseRests,
		RestProbability:    cfg.RestProbability,
		Impulse:            impulse,
		Temperature:        cfg.Temperature,
		ClimaxPosition:     cfg.ClimaxPosition,
	}, cfg.NumMeasures, cfg.Meter, rng)

	motifs := motif.NewEngine(scale, harmony, cfg.RhythmicComplexity,
		motif.FreedomLevel(cfg.VariationFreedom), cfg.UseVariations,
		cfg.VariationProbability, selector.ClimaxMeasure(), rng)

	return &Builder{
		cfg:         cfg,
		mode:        mode,
		rng:         rng,
		scale:       scale,
		harmony:     harmony,
		rhythms:     rhythms,
		motifs:      motifs,
		selector:    selector,
		progression: harmony.CreateProgression(cfg.NumMeasures),
		trace:       NewTrace(),
	}, nil
}

// Progression returns the harmonic plan, one function per measure.
func (b *Builder) Progression() []theory.HarmonicFunction {
	return b.progression
}

// Trace returns the per-onset decision records of the last Build call.
func (b *Builder) Trace() *Trace {
	return b.trace
}

// Build generates the period.
func (b *Builder) Build() (*score.Piece, error) {
	var measures []score.Measure
	switch b.cfg.Structure {
	case StructureHierarchical:
		measures = b.buildHierarchical()
	default:
		measures = b.buildTraditional()
	}

	b.tagCadences(measures)
	return &score.Piece{
		Key:      b.cfg.Key,
		Mode:     b.mode.String(),
		Meter:    b.cfg.Meter,
		Measures: measures,
	}, nil
}

func (b *Builder) tagCadences(measures []score.Measure) {
	n := len(measures)
	if n == 0 {
		return
	}
	measures[n-1].Cadence = score.CadenceAuthentic
	if n >= 4 {
		measures[n/2-1].Cadence = score.CadenceHalf
	}
}

// buildTraditional walks the rhythm grid measure by measure, asking the
// selector for each onset and forcing the cadential closes.
func (b *Builder) buildTraditional() []score.Measure {
	n := b.cfg.NumMeasures
	mid := n / 2

	b.rhythms.InitBaseMotif()
	patterns := make([]rhythm.Pattern, n)
	for m := range patterns {
		patterns[m] = b.rhythms.PatternForMeasure(m)
	}

	onsetsIn := func(from, to int) int {
		total := 0
		for m := from; m < to; m++ {
			total += len(patterns[m].Durations)
		}
		return total
	}

	measures := make([]score.Measure, 0, n)

	contour := b.planContour(onsetsIn(0, mid), melody.RoleAntecedent)
	phraseOnset := 0
	for m := 0; m < mid; m++ {
		measures = append(measures, b.generateMeasure(m, patterns[m], contour, &phraseOnset))
	}

	contour = b.planContour(onsetsIn(mid, n), melody.RoleConsequent)
	phraseOnset = 0
	for m := mid; m < n; m++ {
		measures = append(measures, b.generateMeasure(m, patterns[m], contour, &phraseOnset))
	}

	b.insertTies(measures)
	return measures
}

// planContour builds the target arc for one phrase. A pronounced climax
// intensity pushes the arc's peak one degree higher.
func (b *Builder) planContour(length int, role melody.PhraseRole) *melody.PhraseContour {
	c := melody.PlanPhraseContour(length, role, b.selector.ClimaxReached())
	if b.cfg.ClimaxIntensity >= 1.2 && c.ClimaxDegree < 7 {
		c.ClimaxDegree++
		c.PlanTargets()
	}
	return c
}

func (b *Builder) generateMeasure(m int, pattern rhythm.Pattern,
	contour *melody.PhraseContour, phraseOnset *int) score.Measure {

	n := b.cfg.NumMeasures
	beatLen := 64 / b.cfg.Meter.Unit
	phraseBoundary := m%2 == 1

	var gesture *theory.CadentialGesture
	if m == n/2-1 && n >= 4 {
		g := theory.GestureFor(theory.CadenceHalf)
		gesture = &g
	} else if m == n-1 {
		g := theory.GestureFor(theory.CadenceAuthentic)
		gesture = &g
	}

	forceStart := len(pattern.Durations)
	if gesture != nil {
		k := len(gesture.Degrees)
		if k > len(pattern.Durations) {
			k = len(pattern.Durations)
		}
		forceStart = len(pattern.Durations) - k
	}

	events := make([]score.Event, 0, len(pattern.Durations))
	pos := 0
	for i, d := range pattern.Durations {
		beatIndex := pos / beatLen
		onBeat := pos%beatLen == 0
		strong := onBeat && b.rhythms.IsStrongBeat(beatIndex)

		target := 0
		if *phraseOnset < len(contour.Targets) {
			target = contour.Targets[*phraseOnset]
		}

		switch {
		case gesture != nil && i >= forceStart:
			degree := gesture.Degrees[len(gesture.Degrees)-(len(pattern.Durations)-forceStart)+(i-forceStart)]
			p, fn, dec := b.selector.ForceDegree(degree, m)
			dec.OnsetIndex = i
			dec.BeatIndex = beatIndex
			b.trace.Record(dec)
			b.selector.SetLastWasRest(false)
			events = append(events, score.Event{
				Pitch: p, Degree: degree, Duration: d, Function: fn,
			})

		case b.selector.ShouldRest(m, beatIndex, strong, phraseBoundary):
			b.selector.SetLastWasRest(true)
			events = append(events, score.Event{Rest: true, Duration: d})

		default:
			p, fn, dec := b.selector.SelectPitch(melody.Onset{
				MeasureIndex: m,
				BeatIndex:    beatIndex,
				Strong:       strong,
				NoteIndex:    i,
				TargetDegree: target,
				Strength:     strengthFor(strong, onBeat),
				Position:     b.positionFor(m),
			})
			b.trace.Record(dec)
			b.selector.SetLastWasRest(false)
			events = append(events, score.Event{
				Pitch: p, Degree: dec.ChosenDegree, Duration: d, Function: fn,
			})
		}

		pos += d.Sixtyfourths()
		*phraseOnset++
	}

	return score.Measure{Events: events}
}

func strengthFor(strong, onBeat bool) melody.MetricStrength {
	switch {
	case strong:
		return melody.StrengthStrong
	case onBeat:
		return melody.StrengthSemiStrong
	}
	return melody.StrengthWeak
}

func (b *Builder) positionFor(m int) melody.PhrasePosition {
	n := b.cfg.NumMeasures
	switch {
	case m == b.selector.ClimaxMeasure():
		return melody.PositionClimax
	case m == n-1 || (n >= 4 && m == n/2-1):
		return melody.PositionFinal
	case m == 0:
		return melody.PositionBeginning
	}
	return melody.PositionMiddle
}

// insertTies runs the probabilistic tie pass over adjacent same-pitch notes,
// leaving the last two onsets of cadential measures untouched.
func (b *Builder) insertTies(measures []score.Measure) {
	for mi := range measures {
		cadential := mi == len(measures)-1 || (len(measures) >= 4 && mi == len(measures)/2-1)
		events := measures[mi].Events
		for i := 0; i+1 < len(events); i++ {
			if events[i].Rest || events[i+1].Rest {
				continue
			}
			if events[i].Pitch.MIDI() != events[i+1].Pitch.MIDI() {
				continue
			}
			if cadential && i+1 >= len(events)-2 {
				continue
			}
			p := 0.15
			if events[i].Duration.QuarterOrLonger() {
				p *= 1.5
			}
			if b.rng.Float64() < p {
				events[i].Tie = true
			}
		}
	}
}

// Phrase pairs a motif with its varied answer across two measures.
type Phrase struct {
	Motif        motif.Motif
	Variation    motif.Motif
	StartMeasure int
}

// Semiphrase is one half of the period.
type Semiphrase struct {
	Phrases []Phrase
	Role    melody.PhraseRole
	Cadence score.CadenceType
}

// Period is the full hierarchical structure before flattening.
type Period struct {
	Antecedent Semiphrase
	Consequent Semiphrase
	BaseMotif  motif.Motif
}

// buildHierarchical grows the Motif -> Phrase -> Semiphrase -> Period tree
// top-down, then flattens it to one motif per measure and renders each with
// chord-tone padding.
func (b *Builder) buildHierarchical() []score.Measure {
	period := b.buildPeriodTree()

	flat := make([]motif.Motif, 0, b.cfg.NumMeasures)
	for _, sp := range []Semiphrase{period.Antecedent, period.Consequent} {
		for _, ph := range sp.Phrases {
			flat = append(flat, ph.Motif, ph.Variation)
		}
	}
	flat = flat[:b.cfg.NumMeasures]

	measures := make([]score.Measure, len(flat))
	for m, cell := range flat {
		measures[m] = b.renderMotifMeasure(m, cell)
	}
	return measures
}

func (b *Builder) buildPeriodTree() Period {
	n := b.cfg.NumMeasures
	mid := n / 2
	numPhrases := (n + 1) / 2

	base := b.motifs.CreateBaseMotif(b.progression[0].Degree)
	period := Period{
		BaseMotif:  base,
		Antecedent: Semiphrase{Role: melody.RoleAntecedent, Cadence: score.CadenceHalf},
		Consequent: Semiphrase{Role: melody.RoleConsequent, Cadence: score.CadenceAuthentic},
	}

	for i := 0; i < numPhrases; i++ {
		start, end := 2*i, 2*i+1

		headPolicy, tailPolicy := motif.PolicyAuto, motif.PolicyAuto
		switch {
		case i == numPhrases-1:
			headPolicy, tailPolicy = motif.PolicyStrict, motif.PolicyStrict
		case end == mid-1:
			tailPolicy = motif.PolicyStrict
		}

		head := base
		if i > 0 {
			head = b.motifs.ApplyVariation(base, headPolicy)
		}
		ph := Phrase{
			Motif:        head,
			Variation:    b.motifs.ApplyVariation(head, tailPolicy),
			StartMeasure: start,
		}

		if start < mid {
			period.Antecedent.Phrases = append(period.Antecedent.Phrases, ph)
		} else {
			period.Consequent.Phrases = append(period.Consequent.Phrases, ph)
		}
	}
	return period
}

// renderMotifMeasure lays a motif's notes into a measure and fills any
// remaining time with chord tones of the measure's harmonic function,
// greedily from quarters down to sixty-fourths so the measure always sums
// to its nominal length. Durations are split at strong-beat boundaries
// and the fragments tied.
func (b *Builder) renderMotifMeasure(m int, cell motif.Motif) score.Measure {
	total := b.cfg.Meter.Sixtyfourths()
	fn := b.progression[m]
	bounds := b.strongBoundaries()

	events := make([]score.Event, 0, len(cell.Rhythm.Durations))
	pos := 0
	for i, d := range cell.Rhythm.Durations {
		if i >= len(cell.Pitches) || pos >= total {
			break
		}
		if pos+d.Sixtyfourths() > total {
			d = score.Duration{Num: total - pos, Den: 64}
		}
		events = appendSplit(events, score.Event{
			Pitch:    cell.Pitches[i],
			Degree:   cell.Degrees[i],
			Duration: d,
			Function: b.motifFunction(cell.Degrees[i], fn),
		}, pos, bounds)
		pos += d.Sixtyfourths()
	}

	fillers := []score.Duration{
		{Num: 1, Den: 4}, {Num: 1, Den: 8}, {Num: 1, Den: 16},
		{Num: 1, Den: 32}, {Num: 1, Den: 64},
	}
	for _, filler := range fillers {
		for pos+filler.Sixtyfourths() <= total {
			degree := fn.ChordTones[b.rng.Intn(len(fn.ChordTones))]
			p := b.scale.ClampOctave(b.scale.PitchForDegree(degree, 4))
			events = appendSplit(events, score.Event{
				Pitch:    p,
				Degree:   degree,
				Duration: filler,
				Function: score.FunctionStructural,
			}, pos, bounds)
			pos += filler.Sixtyfourths()
		}
	}

	return score.Measure{Events: events}
}

// strongBoundaries returns the interior strong-beat positions of a measure
// in sixty-fourths.
func (b *Builder) strongBoundaries() []int {
	beatLen := 64 / b.cfg.Meter.Unit
	var bounds []int
	for _, sb := range b.rhythms.StrongBeats() {
		if sb > 0 {
			bounds = append(bounds, sb*beatLen)
		}
	}
	return bounds
}

// appendSplit lays one event starting at pos, splitting it at each crossed
// boundary. Fragments of a sounding note are tied; rest fragments are not.
func appendSplit(events []score.Event, ev score.Event, pos int, bounds []int) []score.Event {
	end := pos + ev.Duration.Sixtyfourths()
	split := false
	for _, bound := range bounds {
		if bound <= pos || bound >= end {
			continue
		}
		head := ev
		head.Duration = score.Duration{Num: bound - pos, Den: 64}
		head.Tie = !ev.Rest
		events = append(events, head)
		pos = bound
		split = true
	}
	if split {
		ev.Duration = score.Duration{Num: end - pos, Den: 64}
	}
	return append(events, ev)
}

func (b *Builder) motifFunction(degree int, fn theory.HarmonicFunction) score.NoteFunction {
	for _, t := range fn.ChordTones {
		if degree == t {
			return score.FunctionStructural
		}
	}
	return score.FunctionPassing
}
