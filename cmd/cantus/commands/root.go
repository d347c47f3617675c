package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cantus",
	Short: "Melodic period generator CLI",
	Long: `Cantus - A command line interface for generating melodic periods
in classical tonal style.

The generator builds an antecedent/consequent period over a diatonic
harmonic progression, with a planned melodic climax and cadences on the
dominant and the tonic.

Examples:
  # Generate an 8 measure period in G mixolydian
  cantus generate --key G --mode mixolydian -o period.ly

  # Generate from a preset file with a fixed seed
  cantus generate -f preset.yaml --seed 42 --midi period.mid

  # List the supported modes
  cantus modes
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(modesCmd)
}
