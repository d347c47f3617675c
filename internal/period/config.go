// Package period orchestrates scale, harmony, rhythm, motif and melodic
// selection into complete antecedent/consequent periods.
package period

import (
	"fmt"

	"github.com/cantus-labs/cantus-api/internal/score"
	"github.com/cantus-labs/cantus-api/internal/theory"
)

// Structure selects the generation strategy.
type Structure string

const (
	// StructureTraditional generates measure by measure over the rhythm grid.
	StructureTraditional Structure = "traditional"
	// StructureHierarchical builds a Motif -> Phrase -> Semiphrase -> Period
	// tree and flattens it.
	StructureHierarchical Structure = "hierarchical"
)

// MarkovConfig controls the optional degree-transition oracle blend.
type MarkovConfig struct {
	Enabled bool    `json:"enabled" yaml:"enabled"`
	Weight  float64 `json:"weight" yaml:"weight"`
	Order   int     `json:"order" yaml:"order"`
}

// Config is the full set of generation parameters for one period. Zero
// values mean "use the default"; call Normalize before Validate.
type Config struct {
	Key         string      `json:"key" yaml:"key"`
	Mode        string      `json:"mode" yaml:"mode"`
	Meter       score.Meter `json:"meter" yaml:"meter"`
	NumMeasures int         `json:"num_measures" yaml:"num_measures"`
	Structure   Structure   `json:"structure" yaml:"structure"`
	Impulse     string      `json:"impulse" yaml:"impulse"`

	RhythmicComplexity int `json:"rhythmic_complexity" yaml:"rhythmic_complexity"`

	UseRests        bool    `json:"use_rests" yaml:"use_rests"`
	RestProbability float64 `json:"rest_probability" yaml:"rest_probability"`

	UseVariations        bool    `json:"use_variations" yaml:"use_variations"`
	VariationProbability float64 `json:"variation_probability" yaml:"variation_probability"`
	VariationFreedom     int     `json:"variation_freedom" yaml:"variation_freedom"`

	ClimaxPosition  float64 `json:"climax_position" yaml:"climax_position"`
	ClimaxIntensity float64 `json:"climax_intensity" yaml:"climax_intensity"`

	MaxInterval    int     `json:"max_interval" yaml:"max_interval"`
	InfractionRate float64 `json:"infraction_rate" yaml:"infraction_rate"`

	UseTenoris         bool    `json:"use_tenoris" yaml:"use_tenoris"`
	TenorisProbability float64 `json:"tenoris_probability" yaml:"tenoris_probability"`

	Temperature float64      `json:"temperature" yaml:"temperature"`
	Markov      MarkovConfig `json:"markov" yaml:"markov"`

	Seed int64 `json:"seed" yaml:"seed"`
}

// DefaultConfig returns an 8-measure C major period in 4/4.
func DefaultConfig() Config {
	c := Config{}
	c.Normalize()
	return c
}

// Normalize fills unset fields with their defaults.
func (c *Config) Normalize() {
	if c.Key == "" {
		c.Key = "C"
	}
	if c.Mode == "" {
		c.Mode = "major"
	}
	if c.Meter.Beats == 0 && c.Meter.Unit == 0 {
		c.Meter = score.Meter{Beats: 4, Unit: 4}
	}
	if c.NumMeasures == 0 {
		c.NumMeasures = 8
	}
	if c.Structure == "" {
		c.Structure = StructureTraditional
	}
	if c.Impulse == "" {
		c.Impulse = string(score.ImpulseTetic)
	}
	if c.RhythmicComplexity == 0 {
		c.RhythmicComplexity = 1
	}
	if c.RestProbability == 0 {
		c.RestProbability = 0.15
	}
	if c.VariationProbability == 0 {
		c.VariationProbability = 0.3
	}
	if c.VariationFreedom == 0 {
		c.VariationFreedom = 1
	}
	if c.ClimaxPosition == 0 {
		c.ClimaxPosition = 0.75
	}
	if c.ClimaxIntensity == 0 {
		c.ClimaxIntensity = 1.0
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 9
	}
	if c.InfractionRate == 0 {
		c.InfractionRate = 0.1
	}
	if c.TenorisProbability == 0 {
		c.TenorisProbability = 0.3
	}
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.Markov.Order == 0 {
		c.Markov.Order = 1
	}
	if c.Markov.Weight == 0 {
		c.Markov.Weight = 0.10
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
}

// Validate rejects configurations the generator cannot honor. An unknown
// mode name is not an error here: Builder falls back to major, which is the
// documented compatibility default.
func (c Config) Validate() error {
	if _, err := theory.ParsePitch(c.Key); err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	if err := c.Meter.Validate(); err != nil {
		return fmt.Errorf("invalid meter: %w", err)
	}
	if c.NumMeasures < 1 || c.NumMeasures > 64 {
		return fmt.Errorf("num_measures must be between 1 and 64, got %d", c.NumMeasures)
	}
	switch c.Structure {
	case StructureTraditional, StructureHierarchical:
	default:
		return fmt.Errorf("unknown structure %q", c.Structure)
	}
	if _, err := score.ParseImpulse(c.Impulse); err != nil {
		return err
	}
	if c.RhythmicComplexity < 1 || c.RhythmicComplexity > 3 {
		return fmt.Errorf("rhythmic_complexity must be 1, 2 or 3, got %d", c.RhythmicComplexity)
	}
	if c.VariationFreedom < 1 || c.VariationFreedom > 3 {
		return fmt.Errorf("variation_freedom must be 1, 2 or 3, got %d", c.VariationFreedom)
	}
	for name, v := range map[string]float64{
		"rest_probability":      c.RestProbability,
		"variation_probability": c.VariationProbability,
		"climax_position":       c.ClimaxPosition,
		"infraction_rate":       c.InfractionRate,
		"tenoris_probability":   c.TenorisProbability,
		"markov.weight":         c.Markov.Weight,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %g", name, v)
		}
	}
	if c.ClimaxIntensity <= 0 {
		return fmt.Errorf("climax_intensity must be positive, got %g", c.ClimaxIntensity)
	}
	if c.MaxInterval < 2 || c.MaxInterval > 12 {
		return fmt.Errorf("max_interval must be between 2 and 12 semitones, got %d", c.MaxInterval)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be in [0,2], got %g", c.Temperature)
	}
	if c.Markov.Enabled && (c.Markov.Order < 1 || c.Markov.Order > 3) {
		return fmt.Errorf("markov.order must be 1, 2 or 3, got %d", c.Markov.Order)
	}
	return nil
}
