package render

import (
	"fmt"
	"io"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cantus-labs/cantus-api/internal/score"
)

const (
	ticksPerQuarter = 960

	velocityStructural = 96
	velocityDefault    = 80
)

// MIDI writes a piece as a single-track standard MIDI file. Tied notes
// merge into one sustained note across the tie chain.
func MIDI(p *score.Piece, w io.Writer, bpm float64) error {
	if bpm <= 0 {
		bpm = 100
	}

	clock := smf.MetricTicks(ticksPerQuarter)
	ticksPer64th := uint32(clock.Resolution()) / 16

	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(fmt.Sprintf("%s %s", p.Key, p.Mode)))
	tr.Add(0, smf.MetaMeter(uint8(p.Meter.Beats), uint8(p.Meter.Unit)))
	tr.Add(0, smf.MetaTempo(bpm))

	events := flatten(p)
	delta := uint32(0)
	for i := 0; i < len(events); i++ {
		ev := events[i]
		durTicks := uint32(ev.Duration.Sixtyfourths()) * ticksPer64th

		if ev.Rest {
			delta += durTicks
			continue
		}

		// Absorb the tie chain into one sounding duration.
		for ev.Tie && i+1 < len(events) && !events[i+1].Rest &&
			events[i+1].Pitch.MIDI() == ev.Pitch.MIDI() {
			i++
			ev = events[i]
			durTicks += uint32(ev.Duration.Sixtyfourths()) * ticksPer64th
		}

		velocity := uint8(velocityDefault)
		if ev.Function == score.FunctionStructural {
			velocity = velocityStructural
		}

		key := uint8(ev.Pitch.MIDI())
		tr.Add(delta, midi.NoteOn(0, key, velocity))
		tr.Add(durTicks, midi.NoteOff(0, key))
		delta = 0
	}
	tr.Close(0)

	s := smf.New()
	s.TimeFormat = clock
	if err := s.Add(tr); err != nil {
		return fmt.Errorf("adding midi track: %w", err)
	}
	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi file: %w", err)
	}
	return nil
}

func flatten(p *score.Piece) []score.Event {
	var out []score.Event
	for _, m := range p.Measures {
		out = append(out, m.Events...)
	}
	return out
}
