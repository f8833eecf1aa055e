package transcribe

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"transcribe4all/cmd/t4a/cmd/cmdutil"
	"transcribe4all/internal/app"
	"transcribe4all/internal/app/batch"
	"transcribe4all/internal/app/service"
	"transcribe4all/internal/app/util/files"
	"transcribe4all/internal/config"
)

var (
	name          string
	engine        string
	acousticModel string
	dictionary    string
	languageModel string
	source        string
	showProgress  bool
	dir           string
	parallel      int
	limit         int
	skipDone      bool
)

func init() {
	Cmd.Flags().StringVarP(&name, "name", "n", "", "input base name, audio is read from NAME.wav (default from config, files/wildshort)")
	Cmd.Flags().StringVarP(&engine, "engine", "e", "", "recognizer engine (sphinx, openai, vosk when built with -tags vosk)")
	Cmd.Flags().StringVar(&acousticModel, "am", "", "acoustic model path")
	Cmd.Flags().StringVar(&dictionary, "dict", "", "pronunciation dictionary path")
	Cmd.Flags().StringVar(&languageModel, "lm", "", "language model path")
	Cmd.Flags().StringVar(&source, "convert", "", "convert this audio file to 16 kHz mono NAME.wav first (requires ffmpeg)")
	Cmd.Flags().BoolVarP(&showProgress, "progress", "p", false, "show a progress bar even when stderr is not a terminal")
	Cmd.Flags().StringVarP(&dir, "dir", "d", "", "transcribe every .wav file in this directory")
	Cmd.Flags().IntVar(&parallel, "parallel", 1, "concurrent runs in --dir mode")
	Cmd.Flags().IntVar(&limit, "limit", 0, "transcribe at most this many files in --dir mode (0 = all)")
	Cmd.Flags().BoolVar(&skipDone, "skip-done", false, "skip inputs whose report already exists in --dir mode")

	Cmd.MarkFlagsMutuallyExclusive("dir", "name")
	Cmd.MarkFlagsMutuallyExclusive("dir", "convert")
}

// Cmd represents the transcribe command
var Cmd = &cobra.Command{
	Use:   "transcribe [NAME]",
	Short: "Transcribe NAME.wav into NAME-json.txt",
	Long: `Transcribe NAME.wav into NAME-json.txt

- NAME may also be given as the only argument; a trailing .wav is ignored
- The report holds textTranscription and metaData as pretty printed JSON
- Each hypothesis and its word list are echoed to stdout while running
- Runs are recorded to the configured history store`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			if name != "" {
				return fmt.Errorf("name given both as argument and --name")
			}
			name = args[0]
		}
		if name != "" {
			name = files.BaseName(name)
		}

		cfg, logger, err := cmdutil.Setup(cmd, applyFlags(cmd))
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := cmdutil.SignalContext(cmd.Context())
		defer stop()

		if dir != "" {
			b, cleanup, err := app.InitializeBatch(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := b.Do(ctx, dir, batch.Options{
				Engine:   cfg.Engine,
				Parallel: parallel,
				Limit:    limit,
				SkipDone: skipDone,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "transcribed %d of %d files (%d failed, %d skipped)\n",
				summary.Succeeded, summary.Total, summary.Failed, summary.Skipped)
			if summary.Failed > 0 {
				return fmt.Errorf("%d transcriptions failed", summary.Failed)
			}
			return nil
		}

		svc, cleanup, err := app.InitializeService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		run, err := svc.Transcribe(ctx, service.Request{Name: cfg.Name, Engine: cfg.Engine, Source: source})
		if err != nil {
			return err
		}

		logger.Debug("run finished", zap.Duration("elapsed", run.Duration()))
		fmt.Fprintf(cmd.ErrOrStderr(), "transcription written to %s (%d words)\n", run.OutputPath, run.WordCount)
		if run.OutputURL != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "uploaded to %s\n", run.OutputURL)
		}
		return nil
	},
}

func applyFlags(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		if name != "" {
			cfg.Name = name
		}
		if engine != "" {
			cfg.Engine = engine
		}
		if acousticModel != "" {
			cfg.Recognizer.AcousticModelPath = acousticModel
		}
		if dictionary != "" {
			cfg.Recognizer.DictionaryPath = dictionary
		}
		if languageModel != "" {
			cfg.Recognizer.LanguageModelPath = languageModel
		}
		if cmd.Flags().Changed("progress") {
			cfg.Progress = showProgress
		}
	}
}
