package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cantus-labs/cantus-api/internal/period"
)

func TestMIDIHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, MIDI(testPiece(), &buf, 100))

	out := buf.Bytes()
	require.Greater(t, len(out), 14)
	assert.Equal(t, []byte("MThd"), out[:4])
	assert.Contains(t, string(out), "MTrk")
}

func TestMIDIRestsProduceNoNotes(t *testing.T) {
	piece := testPiece()
	for mi := range piece.Measures {
		for ei := range piece.Measures[mi].Events {
			piece.Measures[mi].Events[ei].Rest = true
		}
	}

	var all bytes.Buffer
	require.NoError(t, MIDI(testPiece(), &all, 100))
	var rests bytes.Buffer
	require.NoError(t, MIDI(piece, &rests, 100))

	assert.Less(t, rests.Len(), all.Len(), "an all-rest piece carries no note events")
}

func TestMIDITieMerging(t *testing.T) {
	tied := testPiece()

	untied := testPiece()
	untied.Measures[0].Events[0].Tie = false

	var tiedBuf, untiedBuf bytes.Buffer
	require.NoError(t, MIDI(tied, &tiedBuf, 100))
	require.NoError(t, MIDI(untied, &untiedBuf, 100))

	assert.Less(t, tiedBuf.Len(), untiedBuf.Len(),
		"merging the tie chain drops one note on/off pair")
}

func TestMIDIGeneratedPiece(t *testing.T) {
	b, err := period.NewBuilder(period.Config{Key: "A", Mode: "harmonic_minor", Seed: 4}, nil)
	require.NoError(t, err)
	piece, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, MIDI(piece, &buf, 120))
	assert.Equal(t, []byte("MThd"), buf.Bytes()[:4])
}
