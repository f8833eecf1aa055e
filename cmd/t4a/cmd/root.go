package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configcmd "transcribe4all/cmd/t4a/cmd/config"
	"transcribe4all/cmd/t4a/cmd/export"
	"transcribe4all/cmd/t4a/cmd/history"
	"transcribe4all/cmd/t4a/cmd/serve"
	"transcribe4all/cmd/t4a/cmd/transcribe"
	"transcribe4all/cmd/t4a/cmd/version"
	"transcribe4all/internal/config"
)

var (
	Verbose    bool
	ConfigFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "t4a",
	Short: "Transcribe WAV audio to a JSON report",
	Long: `t4a reads NAME.wav, runs a speech recognizer over it and writes the
recognized text and per-word metadata to NAME-json.txt.

- transcribe runs one file (files/wildshort by default) or a directory
- serve exposes the same runs over HTTP
- history and export read the recorded runs`,
	TraverseChildren: true,
	SilenceUsage:     true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if _, err := config.LoadEnv(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(transcribe.Cmd)
	rootCmd.AddCommand(history.Cmd)
	rootCmd.AddCommand(export.Cmd)
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(version.Cmd)
	rootCmd.AddCommand(configcmd.Cmd)

	rootCmd.PersistentFlags().BoolVarP(&Verbose, "verbose", "V", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "config file (default t4a.yaml, then ~/.transcribe4all/config.yaml)")
}
