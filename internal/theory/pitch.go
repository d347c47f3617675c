package theory

import (
	"fmt"
	"strconv"
	"strings"
)

// Pitch is a spelled pitch: a letter step, a chromatic alteration and an
// octave. Octaves follow scientific pitch notation, so C4 is middle C
// (MIDI 60).
type Pitch struct {
	Step   byte // 'A'..'G'
	Alter  int  // -2..2, negative for flats
	Octave int
}

// naturalSemitones maps each letter step to its semitone offset above C.
var naturalSemitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// sharpSpellings maps pitch class to a sharp-preferring spelling, used when
// a pitch has to be rebuilt from a raw semitone value.
var sharpSpellings = [12]struct {
	step  byte
	alter int
}{
	{'C', 0}, {'C', 1}, {'D', 0}, {'D', 1}, {'E', 0}, {'F', 0},
	{'F', 1}, {'G', 0}, {'G', 1}, {'A', 0}, {'A', 1}, {'B', 0},
}

// MIDI returns the MIDI note number of the pitch.
func (p Pitch) MIDI() int {
	return (p.Octave+1)*12 + naturalSemitones[p.Step] + p.Alter
}

// Class returns the pitch class 0-11.
func (p Pitch) Class() int {
	return ((naturalSemitones[p.Step]+p.Alter)%12 + 12) % 12
}

// Name returns the spelled name without octave, e.g. "F#" or "Bb".
func (p Pitch) Name() string {
	var b strings.Builder
	b.WriteByte(p.Step)
	switch {
	case p.Alter > 0:
		b.WriteString(strings.Repeat("#", p.Alter))
	case p.Alter < 0:
		b.WriteString(strings.Repeat("b", -p.Alter))
	}
	return b.String()
}

// String returns the spelled name with octave, e.g. "C#4".
func (p Pitch) String() string {
	return p.Name() + strconv.Itoa(p.Octave)
}

// WithOctave returns the same spelled pitch in a different octave.
func (p Pitch) WithOctave(octave int) Pitch {
	p.Octave = octave
	return p
}

// Transpose shifts the pitch by a number of semitones. The result uses a
// sharp-preferring respelling, so transposing down and back up may change
// the spelling but never the sounding pitch.
func (p Pitch) Transpose(semitones int) Pitch {
	return PitchFromMIDI(p.MIDI() + semitones)
}

// PitchFromMIDI builds a sharp-preferring spelled pitch from a MIDI number.
func PitchFromMIDI(midi int) Pitch {
	pc := ((midi % 12) + 12) % 12
	s := sharpSpellings[pc]
	return Pitch{Step: s.step, Alter: s.alter, Octave: midi/12 - 1}
}

// ParsePitch parses names like "C", "F#", "Bb3" or "Abb2". A missing octave
// defaults to octave 4.
func ParsePitch(name string) (Pitch, error) {
	if name == "" {
		return Pitch{}, fmt.Errorf("empty pitch name")
	}
	step := name[0]
	if step >= 'a' && step <= 'g' {
		step -= 'a' - 'A'
	}
	if step < 'A' || step > 'G' {
		return Pitch{}, fmt.Errorf("invalid pitch step %q", name)
	}

	rest := name[1:]
	alter := 0
	for len(rest) > 0 {
		switch rest[0] {
		case '#':
			if alter < 0 {
				return Pitch{}, fmt.Errorf("mixed accidentals in pitch %q", name)
			}
			alter++
		case 'b':
			if alter > 0 {
				return Pitch{}, fmt.Errorf("mixed accidentals in pitch %q", name)
			}
			alter--
		default:
			goto octave
		}
		rest = rest[1:]
	}
octave:
	if alter < -2 || alter > 2 {
		return Pitch{}, fmt.Errorf("invalid alteration in pitch %q", name)
	}

	oct := 4
	if rest != "" {
		v, err := strconv.Atoi(rest)
		if err != nil {
			return Pitch{}, fmt.Errorf("invalid octave in pitch %q: %w", name, err)
		}
		oct = v
	}
	return Pitch{Step: step, Alter: alter, Octave: oct}, nil
}

// MarshalText encodes the pitch as its spelled name, e.g. "C#4". The zero
// value encodes as the empty string so unsounded slots round-trip.
func (p Pitch) MarshalText() ([]byte, error) {
	if p.Step == 0 {
		return []byte(""), nil
	}
	return []byte(p.String()), nil
}

// UnmarshalText parses a spelled pitch name.
func (p *Pitch) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*p = Pitch{}
		return nil
	}
	parsed, err := ParsePitch(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// IntervalSemitones returns the signed distance from a to b in semitones.
func IntervalSemitones(a, b Pitch) int {
	return b.MIDI() - a.MIDI()
}

// stepIndex returns the 0-based letter index with C=0.
func stepIndex(step byte) int {
	order := "CDEFGAB"
	return strings.IndexByte(order, step)
}

// stepAt returns the letter that is offset letter-steps above the given one.
func stepAt(step byte, offset int) byte {
	order := "CDEFGAB"
	i := ((stepIndex(step)+offset)%7 + 7) % 7
	return order[i]
}
