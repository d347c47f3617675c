package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePitch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Pitch
	}{
		{"natural with octave", "C4", Pitch{'C', 0, 4}},
		{"sharp", "F#3", Pitch{'F', 1, 3}},
		{"flat", "Bb5", Pitch{'B', -1, 5}},
		{"double flat", "Abb2", Pitch{'A', -2, 2}},
		{"default octave", "G", Pitch{'G', 0, 4}},
		{"lowercase", "d#2", Pitch{'D', 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePitch(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePitchRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "H4", "C#b", "C#x"} {
		_, err := ParsePitch(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestPitchMIDI(t *testing.T) {
	tests := []struct {
		in   string
		midi int
	}{
		{"C4", 60},
		{"A4", 69},
		{"C#4", 61},
		{"Bb3", 58},
		{"G2", 43},
	}

	for _, tt := range tests {
		p, err := ParsePitch(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.midi, p.MIDI(), "pitch %s", tt.in)
	}
}

func TestTransposeRoundTrip(t *testing.T) {
	p, err := ParsePitch("E4")
	require.NoError(t, err)
	assert.Equal(t, p.MIDI(), p.Transpose(7).Transpose(-7).MIDI())
}

func TestDorianSpelling(t *testing.T) {
	s, err := NewScale("D", ModeDorian)
	require.NoError(t, err)
	assert.Equal(t, []string{"D", "E", "F", "G", "A", "B", "C"}, s.DegreeNames())
}

func TestScaleSpellings(t *testing.T) {
	tests := []struct {
		tonic string
		mode  Mode
		want  []string
	}{
		{"C", ModeMajor, []string{"C", "D", "E", "F", "G", "A", "B"}},
		{"G", ModeMajor, []string{"G", "A", "B", "C", "D", "E", "F#"}},
		{"F", ModeMajor, []string{"F", "G", "A", "Bb", "C", "D", "E"}},
		{"A", ModeMinor, []string{"A", "B", "C", "D", "E", "F", "G"}},
		{"A", ModeHarmonicMinor, []string{"A", "B", "C", "D", "E", "F", "G#"}},
		{"A", ModeMelodicMinor, []string{"A", "B", "C", "D", "E", "F#", "G#"}},
		{"E", ModePhrygian, []string{"E", "F", "G", "A", "B", "C", "D"}},
		{"C", ModePhrygianDominant, []string{"C", "Db", "E", "F", "G", "Ab", "Bb"}},
	}

	for _, tt := range tests {
		t.Run(tt.tonic+" "+tt.mode.String(), func(t *testing.T) {
			s, err := NewScale(tt.tonic, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.DegreeNames())
		})
	}
}

func TestDegreeOneIsTonic(t *testing.T) {
	for _, name := range ModeNames() {
		mode, err := ParseMode(name)
		require.NoError(t, err)
		s, err := NewScale("E", mode)
		require.NoError(t, err)
		assert.Equal(t, s.Tonic.Class(), s.PitchForDegree(1, 4).Class(), "mode %s", name)
	}
}

func TestDegreeWrapsModulo7(t *testing.T) {
	s, err := NewScale("C", ModeMajor)
	require.NoError(t, err)
	assert.Equal(t, s.PitchForDegree(1, 5).Name(), s.PitchForDegree(8, 5).Name())
	assert.Equal(t, s.PitchForDegree(2, 4).Name(), s.PitchForDegree(9, 4).Name())
}

func TestDegreeForPitch(t *testing.T) {
	s, err := NewScale("D", ModeDorian)
	require.NoError(t, err)

	for deg := 1; deg <= 7; deg++ {
		assert.Equal(t, deg, s.DegreeForPitch(s.PitchForDegree(deg, 4)))
	}

	// Chromatic notes fall back to the tonic degree.
	outside, err := ParsePitch("G#4")
	require.NoError(t, err)
	assert.Equal(t, 1, s.DegreeForPitch(outside))
}

func TestMelodicRange(t *testing.T) {
	s, err := NewScale("C", ModeMajor)
	require.NoError(t, err)

	low, top := s.RangeMIDI()
	assert.Equal(t, 55, low) // G3, a fourth below C4
	assert.Equal(t, 77, top) // F5, an octave and a fourth above C4

	g3, _ := ParsePitch("G3")
	f5, _ := ParsePitch("F5")
	fs3, _ := ParsePitch("F#3")
	assert.True(t, s.InRange(g3))
	assert.True(t, s.InRange(f5))
	assert.False(t, s.InRange(fs3))
}

func TestClampOctave(t *testing.T) {
	s, err := NewScale("C", ModeMajor)
	require.NoError(t, err)

	low, top := s.RangeMIDI()
	for _, name := range []string{"C7", "C1", "D6", "B2", "C0", "G9"} {
		p, perr := ParsePitch(name)
		require.NoError(t, perr)
		clamped := s.ClampOctave(p)
		assert.GreaterOrEqual(t, clamped.MIDI(), low, "pitch %s", name)
		assert.LessOrEqual(t, clamped.MIDI(), top, "pitch %s", name)
		assert.Equal(t, p.Name(), clamped.Name(), "clamping must preserve spelling")
	}
}

func TestChordAndTendencyTones(t *testing.T) {
	s, err := NewScale("C", ModeMajor)
	require.NoError(t, err)

	assert.True(t, s.IsChordTone(1))
	assert.True(t, s.IsChordTone(3))
	assert.True(t, s.IsChordTone(5))
	assert.False(t, s.IsChordTone(4))

	assert.True(t, s.IsTendencyTone(7))
	assert.True(t, s.IsTendencyTone(4))
	assert.False(t, s.IsTendencyTone(5))
	assert.Equal(t, map[int]int{7: 1, 4: 3}, s.TendencyResolutions())
}

func TestModalTendencyOverrides(t *testing.T) {
	phrygian, err := NewScale("E", ModePhrygian)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{2: 1, 4: 3}, phrygian.TendencyResolutions())
	assert.True(t, phrygian.IsTendencyTone(2))

	lydian, err := NewScale("F", ModeLydian)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{7: 1, 4: 5}, lydian.TendencyResolutions())
}

func TestParseModeUnknown(t *testing.T) {
	_, err := ParseMode("hypermixolydian")
	assert.Error(t, err)
}

func TestAllModesConstruct(t *testing.T) {
	tonics := []string{"C", "G", "D", "A", "E", "B", "F", "Bb", "Eb", "F#", "C#", "Gb"}
	for _, name := range ModeNames() {
		mode, err := ParseMode(name)
		require.NoError(t, err)
		for _, tonic := range tonics {
			s, serr := NewScale(tonic, mode)
			require.NoError(t, serr, "%s %s", tonic, name)
			for deg := 1; deg <= 7; deg++ {
				p := s.PitchForDegree(deg, 4)
				assert.GreaterOrEqual(t, p.Alter, -2, "%s %s degree %d", tonic, name, deg)
				assert.LessOrEqual(t, p.Alter, 2, "%s %s degree %d", tonic, name, deg)
			}
		}
	}
}
