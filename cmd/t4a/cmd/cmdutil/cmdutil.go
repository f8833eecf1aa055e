// Package cmdutil holds the setup shared by t4a subcommands.
package cmdutil

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transcribe4all/internal/app/logging"
	"transcribe4all/internal/config"
)

// LoadConfig reads the file named by --config, or the default locations,
// and applies environment overrides.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// NewLogger builds a development logger when --verbose is set.
func NewLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return logging.NewLogger(verbose)
}

// Setup loads and validates the configuration after apply has adjusted it
// from flags, and builds the logger.
func Setup(cmd *cobra.Command, apply func(*config.Config)) (*config.Config, *zap.Logger, error) {
	cfg, err := LoadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := NewLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM so that engine
// subprocesses are stopped.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
