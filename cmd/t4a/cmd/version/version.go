package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"transcribe4all/internal/app/recognizer"
)

var version = "v0.1.0"

// Cmd represents the version command
var Cmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of t4a",
	Long:  `All software has versions. This is t4a's.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), version)
		fmt.Fprintf(cmd.OutOrStdout(), "engines: %v\n", recognizer.Engines())
		return nil
	},
}
