package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"transcribe4all/cmd/t4a/cmd/cmdutil"
	"transcribe4all/internal/config"
)

var force bool

func init() {
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(initCmd)
}

// Cmd represents the config command
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the effective configuration as YAML

- Defaults, the config file and environment overrides are merged
- Secrets are masked`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig(cmd)
		if err != nil {
			return err
		}
		masked := *cfg
		masked.Storage.SecretKey = mask(masked.Storage.SecretKey)
		masked.Database.URL = mask(masked.Database.URL)

		data, err := yaml.Marshal(&masked)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var initCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Write the default configuration (default t4a.yaml)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "t4a.yaml"
		if len(args) == 1 {
			path = args[0]
		}
		if !force && fileExists(path) {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "configuration written to %s\n", path)
		return nil
	},
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
