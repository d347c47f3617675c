package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantus-labs/cantus-api/internal/period"
	"github.com/cantus-labs/cantus-api/internal/score"
	"github.com/cantus-labs/cantus-api/internal/theory"
)

func testPiece() *score.Piece {
	c4 := theory.Pitch{Step: 'C', Octave: 4}
	d4 := theory.Pitch{Step: 'D', Octave: 4}
	g3 := theory.Pitch{Step: 'G', Octave: 3}
	return &score.Piece{
		Key:   "C",
		Mode:  "major",
		Meter: score.Meter{Beats: 4, Unit: 4},
		Measures: []score.Measure{
			{Events: []score.Event{
				{Pitch: c4, Degree: 1, Duration: score.Duration{Num: 1, Den: 4}, Tie: true},
				{Pitch: c4, Degree: 1, Duration: score.Duration{Num: 1, Den: 4}},
				{Rest: true, Duration: score.Duration{Num: 1, Den: 8}},
				{Pitch: d4, Degree: 2, Duration: score.Duration{Num: 1, Den: 8}},
				{Pitch: g3, Degree: 5, Duration: score.Duration{Num: 1, Den: 4}},
			}},
			{Events: []score.Event{
				{Pitch: c4, Degree: 1, Duration: score.Duration{Num: 3, Den: 8}},
				{Pitch: c4, Degree: 1, Duration: score.Duration{Num: 5, Den: 8}},
			}},
		},
	}
}

func TestLilyPondStructure(t *testing.T) {
	out := LilyPond(testPiece(), "Study in C", "")

	assert.Contains(t, out, `title = "Study in C"`)
	assert.Contains(t, out, "\\time 4/4")
	assert.Contains(t, out, "\\key c \\major")
	assert.Contains(t, out, "\\clef \"treble\"")
	assert.Contains(t, out, "\\layout {}")
	assert.Contains(t, out, "\\midi {}")
	assert.Contains(t, out, `\bar "|."`)
}

func TestLilyPondEvents(t *testing.T) {
	out := LilyPond(testPiece(), "", "")

	assert.Contains(t, out, "c'4~ c'4", "tie between the two quarters")
	assert.Contains(t, out, "r8")
	assert.Contains(t, out, "d'8")
	assert.Contains(t, out, "g4", "octave 3 carries no mark")
	assert.Contains(t, out, "c'4.", "dotted quarter for 3/8")
	assert.Contains(t, out, "c'2~ c'8", "5/8 splits into tied half plus eighth")
	assert.NotContains(t, out, "\\header", "no header without title or composer")
}

func TestLilyPondPitchSpelling(t *testing.T) {
	tests := []struct {
		pitch string
		want  string
	}{
		{"C4", "c'"},
		{"F#4", "fis'"},
		{"Bb3", "bes"},
		{"Ab4", "as'"},
		{"Eb5", "es''"},
		{"C#2", "cis,"},
		{"F##4", "fisis'"},
		{"Bbb3", "beses"},
		{"Ebb4", "eses'"},
	}
	for _, tt := range tests {
		p, err := theory.ParsePitch(tt.pitch)
		require.NoError(t, err)
		assert.Equal(t, tt.want, lilyPitch(p), tt.pitch)
	}
}

func TestLilyPondKeySignatures(t *testing.T) {
	assert.Equal(t, "\\key d \\dorian", keySignature("D", "dorian"))
	assert.Equal(t, "\\key bes \\minor", keySignature("Bb", "harmonic_minor"))
	assert.Equal(t, "\\key c \\phrygian", keySignature("C", "phrygian_dominant"))
	assert.Equal(t, "\\key c \\major", keySignature("??", "major"))
}

func TestLilyPondGeneratedPieceCompilableShape(t *testing.T) {
	b, err := period.NewBuilder(period.Config{Key: "G", Mode: "mixolydian", Seed: 9}, nil)
	require.NoError(t, err)
	piece, err := b.Build()
	require.NoError(t, err)

	out := LilyPond(piece, "", "")
	assert.Equal(t, strings.Count(out, "{"), strings.Count(out, "}"))
	assert.Contains(t, out, "\\key g \\mixolydian")
	assert.Equal(t, 7, strings.Count(out, "|")-strings.Count(out, `"|."`),
		"a bar check after each interior measure")
}
