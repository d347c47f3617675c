package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cantus-labs/cantus-api/internal/theory"
)

var modesKey string

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the supported modes and scales",
	Long: `List all supported mode names together with the scale degrees
they produce for a given tonic.

Examples:
  cantus modes
  cantus modes --key D`,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MODE\tSCALE")

		for _, name := range theory.ModeNames() {
			mode, err := theory.ParseMode(name)
			if err != nil {
				return err
			}
			scale, err := theory.NewScale(modesKey, mode)
			if err != nil {
				return err
			}

			degrees := scale.DegreeNames()
			row := ""
			for i, d := range degrees {
				if i > 0 {
					row += " "
				}
				row += d
			}
			fmt.Fprintf(w, "%s\t%s\n", name, row)
		}

		return w.Flush()
	},
}

func init() {
	modesCmd.Flags().StringVar(&modesKey, "key", "C", "tonic pitch class")
}
