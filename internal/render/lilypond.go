// Package render turns generated pieces into external formats: LilyPond
// source and standard MIDI files.
package render

import (
	"fmt"
	"strings"

	"github.com/cantus-labs/cantus-api/internal/score"
	"github.com/cantus-labs/cantus-api/internal/theory"
)

// lilyModes maps every supported mode name to the closest LilyPond key
// command. The derived rotations borrow the signature of their nearest
// diatonic neighbor.
var lilyModes = map[string]string{
	"major":             "\\major",
	"minor":             "\\minor",
	"harmonic_minor":    "\\minor",
	"melodic_minor":     "\\minor",
	"dorian":            "\\dorian",
	"phrygian":          "\\phrygian",
	"lydian":            "\\lydian",
	"mixolydian":        "\\mixolydian",
	"locrian":           "\\locrian",
	"locrian_nat6":      "\\locrian",
	"ionian_aug5":       "\\major",
	"dorian_sharp4":     "\\dorian",
	"phrygian_dominant": "\\phrygian",
	"lydian_sharp2":     "\\lydian",
	"superlocrian_bb7":  "\\locrian",
	"dorian_flat2":      "\\dorian",
	"lydian_augmented":  "\\lydian",
	"lydian_dominant":   "\\lydian",
	"mixolydian_flat6":  "\\mixolydian",
	"locrian_nat2":      "\\locrian",
	"altered":           "\\locrian",
}

// LilyPond renders a piece to complete, compilable LilyPond source with
// absolute pitch notation. Title and composer are optional header fields.
func LilyPond(p *score.Piece, title, composer string) string {
	var elements []string
	for mi, m := range p.Measures {
		for _, ev := range m.Events {
			elements = append(elements, eventTokens(ev)...)
		}
		if mi == len(p.Measures)-1 {
			elements = append(elements, `\bar "|."`)
		} else {
			elements = append(elements, "|")
		}
	}

	var lines []string
	var current []string
	for _, elem := range elements {
		current = append(current, elem)
		if len(current) >= 6 || elem == "|" || strings.HasPrefix(elem, `\bar`) {
			lines = append(lines, strings.Join(current, " "))
			current = nil
		}
	}
	if len(current) > 0 {
		lines = append(lines, strings.Join(current, " "))
	}

	var b strings.Builder
	if title != "" || composer != "" {
		b.WriteString("\\header {\n")
		if title != "" {
			fmt.Fprintf(&b, "  title = %q\n", title)
		}
		if composer != "" {
			fmt.Fprintf(&b, "  composer = %q\n", composer)
		}
		b.WriteString("}\n\n")
	}

	b.WriteString("\\score {\n  {\n")
	fmt.Fprintf(&b, "    \\time %d/%d\n", p.Meter.Beats, p.Meter.Unit)
	fmt.Fprintf(&b, "    %s\n", keySignature(p.Key, p.Mode))
	b.WriteString("    \\clef \"treble\"\n")
	b.WriteString("    \\set strictBeatBeaming = ##t\n")
	for _, line := range lines {
		b.WriteString("    " + line + "\n")
	}
	b.WriteString("  }\n\n  \\layout {}\n  \\midi {}\n}\n")
	return b.String()
}

// keySignature builds the \key command for a tonic name and mode.
func keySignature(key, mode string) string {
	tonic, err := theory.ParsePitch(key)
	if err != nil {
		return "\\key c \\major"
	}
	modeCmd, ok := lilyModes[mode]
	if !ok {
		modeCmd = "\\major"
	}
	return fmt.Sprintf("\\key %s %s", lilyPitchClass(tonic), modeCmd)
}

// eventTokens renders one event. Durations that are not a plain or dotted
// note value decompose into tied components.
func eventTokens(ev score.Event) []string {
	tokens := durationTokens(ev.Duration)
	out := make([]string, 0, len(tokens))
	for i, dur := range tokens {
		var elem string
		if ev.Rest {
			elem = "r" + dur
		} else {
			elem = lilyPitch(ev.Pitch) + dur
			if i < len(tokens)-1 || ev.Tie {
				elem += "~"
			}
		}
		out = append(out, elem)
	}
	return out
}

// lilyPitchClass renders the Dutch note name without octave marks. Flat a
// and e contract to "as" and "es".
func lilyPitchClass(p theory.Pitch) string {
	base := strings.ToLower(string(p.Step))
	switch {
	case p.Alter == 0:
		return base
	case p.Alter > 0:
		return base + strings.Repeat("is", p.Alter)
	case base == "a" || base == "e":
		return base + "s" + strings.Repeat("es", -p.Alter-1)
	default:
		return base + strings.Repeat("es", -p.Alter)
	}
}

// lilyPitch renders an absolute pitch. LilyPond's unmarked octave is our
// octave 3, so c' is middle C.
func lilyPitch(p theory.Pitch) string {
	name := lilyPitchClass(p)
	switch {
	case p.Octave > 3:
		return name + strings.Repeat("'", p.Octave-3)
	case p.Octave < 3:
		return name + strings.Repeat(",", 3-p.Octave)
	}
	return name
}

// noteValues pairs sixty-fourth lengths with their LilyPond duration token,
// longest first. Dotted values included.
var noteValues = []struct {
	sixtyfourths int
	token        string
}{
	{96, "1."}, {64, "1"}, {48, "2."}, {32, "2"}, {24, "4."}, {16, "4"},
	{12, "8."}, {8, "8"}, {6, "16."}, {4, "16"}, {3, "32."}, {2, "32"}, {1, "64"},
}

// durationTokens decomposes a duration into one or more note-value tokens.
// A plain or dotted value yields one token; anything else greedily splits
// into tied components.
func durationTokens(d score.Duration) []string {
	remaining := d.Sixtyfourths()
	if remaining <= 0 {
		return []string{"64"}
	}
	var tokens []string
	for remaining > 0 {
		for _, v := range noteValues {
			if v.sixtyfourths <= remaining {
				tokens = append(tokens, v.token)
				remaining -= v.sixtyfourths
				break
			}
		}
	}
	return tokens
}
