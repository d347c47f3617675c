package theory

import (
	"fmt"
	"sort"
)

// Mode identifies one of the supported scale modes: the seven diatonic
// modes, the two altered minors, and the derived rotations of harmonic and
// melodic minor.
type Mode int

const (
	ModeMajor Mode = iota
	ModeDorian
	ModePhrygian
	ModeLydian
	ModeMixolydian
	ModeMinor
	ModeLocrian
	ModeHarmonicMinor
	ModeMelodicMinor
	ModeLocrianNat6
	ModeIonianAug5
	ModeDorianSharp4
	ModePhrygianDominant
	ModeLydianSharp2
	ModeSuperlocrianBb7
	ModeDorianFlat2
	ModeLydianAugmented
	ModeLydianDominant
	ModeMixolydianFlat6
	ModeLocrianNat2
	ModeAltered
)

var modeNames = map[Mode]string{
	ModeMajor:            "major",
	ModeDorian:           "dorian",
	ModePhrygian:         "phrygian",
	ModeLydian:           "lydian",
	ModeMixolydian:       "mixolydian",
	ModeMinor:            "minor",
	ModeLocrian:          "locrian",
	ModeHarmonicMinor:    "harmonic_minor",
	ModeMelodicMinor:     "melodic_minor",
	ModeLocrianNat6:      "locrian_nat6",
	ModeIonianAug5:       "ionian_aug5",
	ModeDorianSharp4:     "dorian_sharp4",
	ModePhrygianDominant: "phrygian_dominant",
	ModeLydianSharp2:     "lydian_sharp2",
	ModeSuperlocrianBb7:  "superlocrian_bb7",
	ModeDorianFlat2:      "dorian_flat2",
	ModeLydianAugmented:  "lydian_augmented",
	ModeLydianDominant:   "lydian_dominant",
	ModeMixolydianFlat6:  "mixolydian_flat6",
	ModeLocrianNat2:      "locrian_nat2",
	ModeAltered:          "altered",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode resolves a mode name like "dorian" or "phrygian_dominant".
func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", name)
}

// ModeNames returns all supported mode names, sorted.
func ModeNames() []string {
	names := make([]string, 0, len(modeNames))
	for _, n := range modeNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Semitone offsets above the tonic for the non-derived modes.
var baseOffsets = map[Mode][7]int{
	ModeMajor:         {0, 2, 4, 5, 7, 9, 11},
	ModeDorian:        {0, 2, 3, 5, 7, 9, 10},
	ModePhrygian:      {0, 1, 3, 5, 7, 8, 10},
	ModeLydian:        {0, 2, 4, 6, 7, 9, 11},
	ModeMixolydian:    {0, 2, 4, 5, 7, 9, 10},
	ModeMinor:         {0, 2, 3, 5, 7, 8, 10},
	ModeLocrian:       {0, 1, 3, 5, 6, 8, 10},
	ModeHarmonicMinor: {0, 2, 3, 5, 7, 8, 11},
	ModeMelodicMinor:  {0, 2, 3, 5, 7, 9, 11},
}

// Derived modes are rotations of harmonic or melodic minor, keyed by parent
// and rotation index.
var derivedModes = map[Mode]struct {
	parent   Mode
	rotation int
}{
	ModeLocrianNat6:      {ModeHarmonicMinor, 1},
	ModeIonianAug5:       {ModeHarmonicMinor, 2},
	ModeDorianSharp4:     {ModeHarmonicMinor, 3},
	ModePhrygianDominant: {ModeHarmonicMinor, 4},
	ModeLydianSharp2:     {ModeHarmonicMinor, 5},
	ModeSuperlocrianBb7:  {ModeHarmonicMinor, 6},
	ModeDorianFlat2:      {ModeMelodicMinor, 1},
	ModeLydianAugmented:  {ModeMelodicMinor, 2},
	ModeLydianDominant:   {ModeMelodicMinor, 3},
	ModeMixolydianFlat6:  {ModeMelodicMinor, 4},
	ModeLocrianNat2:      {ModeMelodicMinor, 5},
	ModeAltered:          {ModeMelodicMinor, 6},
}

// offsetsFor returns the semitone offsets above the tonic for any mode.
// Derived modes rotate their parent's offsets so degree 1 stays on the tonic.
func offsetsFor(m Mode) ([7]int, error) {
	if offs, ok := baseOffsets[m]; ok {
		return offs, nil
	}
	d, ok := derivedModes[m]
	if !ok {
		return [7]int{}, fmt.Errorf("unknown mode %q", m)
	}
	parent := baseOffsets[d.parent]
	var offs [7]int
	for i := 0; i < 7; i++ {
		offs[i] = ((parent[(i+d.rotation)%7]-parent[d.rotation])%12 + 12) % 12
	}
	return offs, nil
}

// Default tendency-tone resolutions: the leading tone pulls to the tonic and
// the subdominant to the mediant. A few modes override this where the
// characteristic tone pulls elsewhere.
var tendencyOverrides = map[Mode]map[int]int{
	ModePhrygian: {2: 1, 4: 3},
	ModeLydian:   {7: 1, 4: 5},
}

// Scale binds a tonic and mode to concrete spelled degrees and the melodic
// range used during generation: from a fourth below the tonic's fourth
// octave up to a fourth above the next octave.
type Scale struct {
	Tonic Pitch
	Mode  Mode

	degrees  [7]Pitch // spelled at octave 4
	rangeLow int      // MIDI
	rangeTop int      // MIDI
}

// NewScale builds a scale for a tonic name ("C", "F#", "Bb") and mode.
// Degree spellings walk the letter sequence from the tonic, so D dorian
// yields D E F G A B C rather than enharmonic respellings.
func NewScale(tonic string, mode Mode) (*Scale, error) {
	tp, err := ParsePitch(tonic)
	if err != nil {
		return nil, fmt.Errorf("invalid tonic: %w", err)
	}
	tp.Octave = 4

	offs, err := offsetsFor(mode)
	if err != nil {
		return nil, err
	}

	s := &Scale{Tonic: tp, Mode: mode}
	tonicPC := tp.Class()
	for i := 0; i < 7; i++ {
		step := stepAt(tp.Step, i)
		pc := (tonicPC + offs[i]) % 12
		alter := pc - naturalSemitones[step]
		// Normalize to the nearest representative, so B with pc 0 becomes
		// B# (+1) rather than Bbbbbbbbbbbb (-11).
		for alter > 6 {
			alter -= 12
		}
		for alter < -6 {
			alter += 12
		}
		s.degrees[i] = Pitch{Step: step, Alter: alter, Octave: 4}
	}

	tonicMIDI := tp.MIDI()
	s.rangeLow = tonicMIDI - 5
	s.rangeTop = tonicMIDI + 17
	return s, nil
}

// PitchForDegree returns the spelled pitch for a degree (1-based, values
// beyond 7 wrap) at the requested octave.
func (s *Scale) PitchForDegree(degree, octave int) Pitch {
	i := ((degree-1)%7 + 7) % 7
	return s.degrees[i].WithOctave(octave)
}

// DegreeForPitch maps a pitch back to its scale degree by spelled name.
// Pitches outside the scale fall back to degree 1; callers that need to
// distinguish chromatic notes should compare pitch classes themselves.
func (s *Scale) DegreeForPitch(p Pitch) int {
	for i, d := range s.degrees {
		if d.Step == p.Step && d.Alter == p.Alter {
			return i + 1
		}
	}
	for i, d := range s.degrees {
		if d.Class() == p.Class() {
			return i + 1
		}
	}
	return 1
}

// DegreeNames returns the seven spelled degree names without octave.
func (s *Scale) DegreeNames() []string {
	names := make([]string, 7)
	for i, d := range s.degrees {
		names[i] = d.Name()
	}
	return names
}

// IsChordTone reports whether a degree belongs to the tonic triad.
func (s *Scale) IsChordTone(degree int) bool {
	d := ((degree-1)%7+7)%7 + 1
	return d == 1 || d == 3 || d == 5
}

// TendencyResolutions returns the map from tendency degrees to the degrees
// they resolve to, with per-mode overrides applied.
func (s *Scale) TendencyResolutions() map[int]int {
	if o, ok := tendencyOverrides[s.Mode]; ok {
		res := make(map[int]int, len(o))
		for k, v := range o {
			res[k] = v
		}
		return res
	}
	return map[int]int{7: 1, 4: 3}
}

// IsTendencyTone reports whether a degree carries a resolution obligation.
func (s *Scale) IsTendencyTone(degree int) bool {
	d := ((degree-1)%7+7)%7 + 1
	_, ok := s.TendencyResolutions()[d]
	return ok
}

// RangeMIDI returns the inclusive MIDI bounds of the melodic range.
func (s *Scale) RangeMIDI() (low, top int) {
	return s.rangeLow, s.rangeTop
}

// InRange reports whether a pitch lies inside the melodic range.
func (s *Scale) InRange(p Pitch) bool {
	m := p.MIDI()
	return m >= s.rangeLow && m <= s.rangeTop
}

// ClampOctave moves a pitch by whole octaves until it fits the melodic
// range. The range spans more than an octave, so every pitch class lands
// inside; the guards only stop a shift that would overshoot the far bound.
func (s *Scale) ClampOctave(p Pitch) Pitch {
	for p.MIDI() < s.rangeLow && p.MIDI()+12 <= s.rangeTop {
		p = p.WithOctave(p.Octave + 1)
	}
	for p.MIDI() > s.rangeTop && p.MIDI()-12 >= s.rangeLow {
		p = p.WithOctave(p.Octave - 1)
	}
	return p
}
