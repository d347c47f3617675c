package theory

import (
	"math/rand"
)

// ChordQuality classifies the triad built on a degree.
type ChordQuality string

const (
	QualityMajor      ChordQuality = "major"
	QualityMinor      ChordQuality = "minor"
	QualityDiminished ChordQuality = "diminished"
	QualityAugmented  ChordQuality = "augmented"
)

// HarmonicFunction is one measure of a progression plan.
type HarmonicFunction struct {
	Degree     int          `json:"degree"`
	Quality    ChordQuality `json:"quality"`
	Tension    float64      `json:"tension"`
	ChordTones []int        `json:"chord_tones"`
}

// Harmonic tension by degree: tonic is at rest, dominant function degrees
// carry the pull.
var tensionByDegree = map[int]float64{
	1: 0.0, 2: 0.4, 3: 0.3, 4: 0.5, 5: 0.8, 6: 0.3, 7: 0.9,
}

var majorFamilyQualities = map[int]ChordQuality{
	1: QualityMajor, 2: QualityMinor, 3: QualityMinor, 4: QualityMajor,
	5: QualityMajor, 6: QualityMinor, 7: QualityDiminished,
}

var minorFamilyQualities = map[int]ChordQuality{
	1: QualityMinor, 2: QualityDiminished, 3: QualityMajor, 4: QualityMinor,
	5: QualityMinor, 6: QualityMajor, 7: QualityMajor,
}

// isMajorFamily groups modes by the quality table their triads follow.
func isMajorFamily(m Mode) bool {
	switch m {
	case ModeMajor, ModeLydian, ModeMixolydian:
		return true
	}
	return false
}

// HarmonyModel plans chord degrees, qualities and tensions for a period.
type HarmonyModel struct {
	mode        Mode
	numMeasures int
	strongBeats []int
	rng         *rand.Rand
}

// NewHarmonyModel builds the harmonic scaffolding for numMeasures measures.
func NewHarmonyModel(mode Mode, numMeasures int, strongBeats []int, rng *rand.Rand) *HarmonyModel {
	return &HarmonyModel{
		mode:        mode,
		numMeasures: numMeasures,
		strongBeats: strongBeats,
		rng:         rng,
	}
}

// QualityForDegree returns the triad quality on a degree for this mode.
// The harmonic minor borrows its raised leading tone, turning the dominant
// major and the seventh diminished.
func (h *HarmonyModel) QualityForDegree(degree int) ChordQuality {
	d := ((degree-1)%7+7)%7 + 1
	if isMajorFamily(h.mode) {
		return majorFamilyQualities[d]
	}
	if h.mode == ModeHarmonicMinor {
		switch d {
		case 5:
			return QualityMajor
		case 7:
			return QualityDiminished
		}
	}
	return minorFamilyQualities[d]
}

// TensionForDegree returns the harmonic tension on a degree.
func (h *HarmonyModel) TensionForDegree(degree int) float64 {
	d := ((degree-1)%7+7)%7 + 1
	return tensionByDegree[d]
}

// ChordTones returns the triad degrees for a chord degree. Degrees other
// than I, IV and V resolve to the tonic triad.
func (h *HarmonyModel) ChordTones(degree int) []int {
	switch ((degree-1)%7+7)%7 + 1 {
	case 4:
		return []int{4, 6, 1}
	case 5:
		return []int{5, 7, 2}
	default:
		return []int{1, 3, 5}
	}
}

// FunctionAt returns the chord degree sounding at a measure and beat. The
// measure before the midpoint lands on the dominant for the half cadence,
// the final measure on the tonic, and the rest cycle a four-measure tonal
// template with an occasional subdominant in second position.
func (h *HarmonyModel) FunctionAt(measureIndex, beatIndex int) int {
	lastStrong := 0
	for _, b := range h.strongBeats {
		if b > lastStrong {
			lastStrong = b
		}
	}

	midpoint := h.numMeasures / 2
	if measureIndex == midpoint-1 && beatIndex >= lastStrong {
		return 5
	}
	if measureIndex == h.numMeasures-1 && beatIndex >= lastStrong {
		return 1
	}

	switch measureIndex % 4 {
	case 1:
		if h.rng.Float64() < 0.4 {
			return 4
		}
		return 1
	case 2:
		return 5
	default:
		return 1
	}
}

// FunctionFor wraps a chord degree with its quality, tension and triad.
func (h *HarmonyModel) FunctionFor(degree int) HarmonicFunction {
	return HarmonicFunction{
		Degree:     degree,
		Quality:    h.QualityForDegree(degree),
		Tension:    h.TensionForDegree(degree),
		ChordTones: h.ChordTones(degree),
	}
}

// CreateProgression plans one chord per measure. Antecedent halves close on
// the dominant, the period always closes on the tonic.
func (h *HarmonyModel) CreateProgression(numMeasures int) []HarmonicFunction {
	degrees := progressionDegrees(numMeasures)
	plan := make([]HarmonicFunction, len(degrees))
	for i, d := range degrees {
		plan[i] = h.FunctionFor(d)
	}
	return plan
}

// The tonal template the templates below truncate from.
var progressionTemplate = []int{1, 1, 4, 5}

func progressionDegrees(numMeasures int) []int {
	var degrees []int
	switch {
	case numMeasures <= 0:
		return nil
	case numMeasures == 1:
		degrees = []int{1}
	case numMeasures == 2:
		// Short enough that a half-cadence close is the better shape.
		return []int{1, 5}
	case numMeasures <= 4:
		degrees = tailOfTemplate(numMeasures)
	case numMeasures <= 8:
		midpoint := numMeasures / 2
		degrees = append(degrees, tailOfTemplate(midpoint)...)
		degrees = append(degrees, tailOfTemplate(numMeasures-midpoint)...)
	default:
		for len(degrees) < numMeasures {
			degrees = append(degrees, progressionTemplate...)
		}
		degrees = degrees[:numMeasures]
	}
	degrees[len(degrees)-1] = 1
	return degrees
}

// tailOfTemplate keeps the cadential end of the I-I-IV-V template when a
// phrase is shorter than four measures.
func tailOfTemplate(n int) []int {
	if n >= len(progressionTemplate) {
		out := make([]int, len(progressionTemplate))
		copy(out, progressionTemplate)
		return out
	}
	out := make([]int, n)
	copy(out, progressionTemplate[len(progressionTemplate)-n:])
	return out
}
