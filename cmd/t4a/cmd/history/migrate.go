package history

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transcribe4all/cmd/t4a/cmd/cmdutil"
	"transcribe4all/internal/app/repository/migrate"
	"transcribe4all/internal/app/repository/pg"
	"transcribe4all/internal/app/repository/sqlite"
)

var (
	fromPath  string
	toURL     string
	afterID   int64
	batchSize int
)

func init() {
	migrateCmd.Flags().StringVar(&fromPath, "from", "", "sqlite history file to read (default data/runs.db)")
	migrateCmd.Flags().StringVar(&toURL, "to", "", "postgres connection string (default database.url / T4A_DATABASE_URL)")
	migrateCmd.Flags().Int64Var(&afterID, "after", 0, "resume after this source run id")
	migrateCmd.Flags().IntVar(&batchSize, "batch", migrate.DefaultBatchSize, "runs copied per batch")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy the local sqlite run history into postgres",
	Long: `Copy the local sqlite run history into postgres

- Runs are copied in id order; --after resumes an interrupted copy
- The last copied source id is printed on exit, also on failure`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cmdutil.Setup(cmd, nil)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := cmdutil.SignalContext(cmd.Context())
		defer stop()

		if fromPath == "" {
			fromPath = cfg.Database.Path
		}
		if fromPath == "" {
			fromPath = sqlite.DefaultPath()
		}
		if toURL == "" {
			toURL = cfg.Database.URL
		}
		if toURL == "" {
			return fmt.Errorf("--to or database.url is required")
		}

		src, err := sqlite.Open(ctx, fromPath)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := pg.Open(ctx, toURL)
		if err != nil {
			return err
		}
		defer dst.Close()

		copied, lastID, err := migrate.Copy(ctx, src, dst, afterID, batchSize, logger)
		logger.Info("migration finished", zap.Int("copied", copied), zap.Int64("last_id", lastID))
		fmt.Fprintf(cmd.OutOrStdout(), "copied %d runs, last source id %d\n", copied, lastID)
		return err
	},
}
