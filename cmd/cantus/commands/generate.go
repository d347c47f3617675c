package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/cantus-labs/cantus-api/internal/melody"
	"github.com/cantus-labs/cantus-api/internal/period"
	"github.com/cantus-labs/cantus-api/internal/render"
)

// preset is the on-disk request format for generate -f.
type preset struct {
	period.Config `yaml:",inline"`

	Title string  `yaml:"title" json:"title"`
	Tempo float64 `yaml:"tempo" json:"tempo"`
}

var (
	genInputFile  string
	genOutputFile string
	genMIDIFile   string

	genKey         string
	genMode        string
	genMeter       string
	genMeasures    int
	genStructure   string
	genImpulse     string
	genComplexity  int
	genSeed        int64
	genTitle       string
	genTempo       float64
	genTemperature float64
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a melodic period",
	Long: `Generate one melodic period and write it as LilyPond source,
optionally also as a Standard MIDI File.

Parameters come from an optional preset file (YAML or JSON), with
command line flags overriding individual fields.

Example preset file (preset.yaml):
  key: D
  mode: harmonic_minor
  meter:
    beats: 3
    unit: 4
  num_measures: 8
  structure: hierarchical
  rhythmic_complexity: 2
  use_variations: true
  markov:
    enabled: true
    order: 2

Examples:
  cantus generate --key Eb --mode major --meter 4/4 -o period.ly
  cantus generate -f preset.yaml --seed 42 --midi period.mid`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var p preset
		if genInputFile != "" {
			if err := loadPreset(genInputFile, &p); err != nil {
				return err
			}
		}

		if err := applyFlags(cmd, &p); err != nil {
			return err
		}

		cfg := p.Config
		if cfg.Seed == 0 {
			cfg.Seed = time.Now().UnixNano()
		}
		cfg.Normalize()

		var oracle melody.Oracle
		if cfg.Markov.Enabled {
			chain, err := melody.NewDegreeChain(cfg.Markov.Order)
			if err != nil {
				return err
			}
			oracle = chain
		}

		builder, err := period.NewBuilder(cfg, oracle)
		if err != nil {
			return err
		}
		piece, err := builder.Build()
		if err != nil {
			return err
		}

		lily := render.LilyPond(piece, p.Title, "")
		if genOutputFile != "" {
			if err := os.WriteFile(genOutputFile, []byte(lily), 0644); err != nil {
				return fmt.Errorf("writing %s: %w", genOutputFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (seed %d)\n", genOutputFile, cfg.Seed)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), lily)
		}

		if genMIDIFile != "" {
			f, err := os.Create(genMIDIFile)
			if err != nil {
				return fmt.Errorf("creating %s: %w", genMIDIFile, err)
			}
			defer f.Close()
			if err := render.MIDI(piece, f, p.Tempo); err != nil {
				return fmt.Errorf("writing %s: %w", genMIDIFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", genMIDIFile)
		}

		return nil
	},
}

// loadPreset loads a preset from a YAML or JSON file
func loadPreset(path string, p *preset) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, p); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, p); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
	}
	return nil
}

// applyFlags overlays flag values on the preset, only for flags the
// user actually set.
func applyFlags(cmd *cobra.Command, p *preset) error {
	flags := cmd.Flags()

	if flags.Changed("key") {
		p.Key = genKey
	}
	if flags.Changed("mode") {
		p.Mode = genMode
	}
	if flags.Changed("meter") {
		beats, unit, err := parseMeter(genMeter)
		if err != nil {
			return err
		}
		p.Meter.Beats = beats
		p.Meter.Unit = unit
		p.Meter.Subdivisions = nil
	}
	if flags.Changed("measures") {
		p.NumMeasures = genMeasures
	}
	if flags.Changed("structure") {
		p.Structure = period.Structure(genStructure)
	}
	if flags.Changed("impulse") {
		p.Impulse = genImpulse
	}
	if flags.Changed("complexity") {
		p.RhythmicComplexity = genComplexity
	}
	if flags.Changed("seed") {
		p.Seed = genSeed
	}
	if flags.Changed("title") {
		p.Title = genTitle
	}
	if flags.Changed("tempo") {
		p.Tempo = genTempo
	}
	if flags.Changed("temperature") {
		p.Temperature = genTemperature
	}
	return nil
}

// parseMeter parses a time signature like "3/4" or "6/8"
func parseMeter(s string) (beats, unit int, err error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid meter %q, expected beats/unit like 4/4", s)
	}
	beats, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid meter beats %q", parts[0])
	}
	unit, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid meter unit %q", parts[1])
	}
	return beats, unit, nil
}

func init() {
	generateCmd.Flags().StringVarP(&genInputFile, "file", "f", "", "preset file (YAML or JSON)")
	generateCmd.Flags().StringVarP(&genOutputFile, "output", "o", "", "LilyPond output file (default: stdout)")
	generateCmd.Flags().StringVar(&genMIDIFile, "midi", "", "also write a Standard MIDI File to this path")

	generateCmd.Flags().StringVar(&genKey, "key", "C", "tonic pitch class, e.g. C, F#, Bb")
	generateCmd.Flags().StringVar(&genMode, "mode", "major", "mode name (see 'cantus modes')")
	generateCmd.Flags().StringVar(&genMeter, "meter", "4/4", "time signature, e.g. 4/4, 3/4, 6/8")
	generateCmd.Flags().IntVar(&genMeasures, "measures", 8, "number of measures")
	generateCmd.Flags().StringVar(&genStructure, "structure", "traditional", "generation structure (traditional, hierarchical)")
	generateCmd.Flags().StringVar(&genImpulse, "impulse", "tetic", "initial impulse (tetic, anacrustic, acephalous)")
	generateCmd.Flags().IntVar(&genComplexity, "complexity", 1, "rhythmic complexity (1-3)")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (0 picks one from the clock)")
	generateCmd.Flags().StringVar(&genTitle, "title", "", "piece title for the LilyPond header")
	generateCmd.Flags().Float64Var(&genTempo, "tempo", 100, "MIDI tempo in BPM")
	generateCmd.Flags().Float64Var(&genTemperature, "temperature", 0.3, "selection randomness (0-2)")
}
