package serve

import (
	"time"

	"github.com/spf13/cobra"

	"transcribe4all/cmd/t4a/cmd/cmdutil"
	"transcribe4all/internal/app"
	"transcribe4all/internal/config"
)

var (
	addr            string
	shutdownTimeout time.Duration
)

func init() {
	Cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address (default server.addr, :8080)")
	Cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 30*time.Second, "grace period for in-flight requests on shutdown")
}

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve transcriptions over HTTP",
	Long: `Serve transcriptions over HTTP

- POST /api/v1/transcriptions queues a run and returns its task id
- GET /api/v1/transcriptions/:id reports the task status and run
- GET /api/v1/runs lists the run history
- GET /metrics exposes prometheus metrics`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cmdutil.Setup(cmd, func(cfg *config.Config) {
			if addr != "" {
				cfg.Server.Addr = addr
			}
		})
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := cmdutil.SignalContext(cmd.Context())
		defer stop()

		srv, cleanup, err := app.InitializeServer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		return srv.Run(ctx, shutdownTimeout)
	},
}
