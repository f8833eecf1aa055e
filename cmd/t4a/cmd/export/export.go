package export

import (
	"fmt"

	"github.com/spf13/cobra"

	"transcribe4all/cmd/t4a/cmd/cmdutil"
	"transcribe4all/internal/app"
	"transcribe4all/internal/app/export"
	"transcribe4all/internal/app/model"
)

var (
	name           string
	outputFilePath string
	limit          int
)

func init() {
	Cmd.Flags().StringVarP(&name, "name", "n", "", "only export runs for this input base name")
	Cmd.Flags().StringVarP(&outputFilePath, "output", "o", "runs.xlsx", "xlsx file to write")
	Cmd.Flags().IntVarP(&limit, "limit", "l", 10000, "maximum number of runs to export")
}

// Cmd represents the export command
var Cmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to excel",
	Long: `Export recorded runs to excel

- One row per run, newest first, including the recognized text`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := cmdutil.Setup(cmd, nil)
		if err != nil {
			return err
		}
		defer logger.Sync()

		dao, cleanup, err := app.ProvideHistory(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		if dao == nil {
			return fmt.Errorf("run history is disabled (database.driver: none)")
		}

		var runs []model.Run
		if name != "" {
			runs, err = dao.ListByName(cmd.Context(), name, limit)
		} else {
			runs, err = dao.List(cmd.Context(), limit)
		}
		if err != nil {
			return err
		}

		if err := export.ToExcel(runs, outputFilePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "export finished, %d runs written to %v\n", len(runs), outputFilePath)
		return nil
	},
}
