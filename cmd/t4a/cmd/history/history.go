package history

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"transcribe4all/cmd/t4a/cmd/cmdutil"
	"transcribe4all/internal/app"
	"transcribe4all/internal/app/model"
)

var (
	name  string
	limit int
)

func init() {
	Cmd.Flags().StringVarP(&name, "name", "n", "", "only show runs for this input base name")
	Cmd.Flags().IntVarP(&limit, "limit", "l", 20, "number of runs to show")

	Cmd.AddCommand(migrateCmd)
}

// Cmd represents the history command
var Cmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded transcription runs, newest first",
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
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

func printRuns(out io.Writer, runs []model.Run) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tNAME\tENGINE\tWORDS\tDURATION\tSTATUS")
	for _, r := range runs {
		status := "ok"
		if r.HasError {
			status = "error: " + firstLine(r.ErrorMessage)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Name,
			r.Engine,
			r.WordCount,
			r.Duration().Round(time.Millisecond),
			status,
		)
	}
	return w.Flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
