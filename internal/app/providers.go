package app

import (
	"context"
	"io"

	"github.com/google/wire"
	"go.uber.org/zap"

	"transcribe4all/internal/api/server"
	"transcribe4all/internal/api/v1/handlers"
	apperrors "transcribe4all/internal/app/errors"
	"transcribe4all/internal/app/metrics"
	"transcribe4all/internal/app/progress"
	"transcribe4all/internal/app/repository"
	"transcribe4all/internal/app/repository/pg"
	"transcribe4all/internal/app/repository/sqlite"
	"transcribe4all/internal/app/service"
	"transcribe4all/internal/app/storage"
	"transcribe4all/internal/app/tasks"
	"transcribe4all/internal/app/transcription"
	"transcribe4all/internal/config"
)

// ServiceSet builds a service.Service from a loaded configuration.
var ServiceSet = wire.NewSet(
	ProvideHistory,
	ProvideUploader,
	metrics.New,
	service.New,
)

// ServerSet builds the HTTP server around ServiceSet.
var ServerSet = wire.NewSet(
	ServiceSet,
	ProvideServerRunner,
	ProvideExecutor,
	ProvideServerConfig,
	handlers.NewTranscriptionHandler,
	server.NewServer,
	wire.Bind(new(handlers.Transcriber), new(*service.Service)),
	wire.Bind(new(handlers.TaskQueue), new(*tasks.Executor)),
)

// ProvideProgress renders read progress when cfg asks for it or stderr is a
// terminal.
func ProvideProgress(cfg *config.Config) (*progress.Manager, func()) {
	m := progress.NewManager(progress.Config{Enabled: progress.ShouldShowProgress(cfg.Progress)})
	return m, m.Shutdown
}

// ProvideRunner echoes diagnostics to stdout, for the CLI.
func ProvideRunner(logger *zap.Logger, m *progress.Manager) *transcription.Runner {
	return transcription.NewRunner(logger, transcription.WithProgress(m))
}

// ProvideServerRunner runs silently; concurrent runs would interleave their
// diagnostics.
func ProvideServerRunner(logger *zap.Logger) *transcription.Runner {
	return transcription.NewRunner(logger, transcription.WithDiagnostics(io.Discard))
}

// ProvideHistory opens the configured run history store. The "none" driver
// disables history.
func ProvideHistory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.RunDAO, func(), error) {
	var (
		dao repository.RunDAO
		err error
	)
	switch cfg.Database.Driver {
	case "none":
		return nil, func() {}, nil
	case "postgres":
		dao, err = pg.Open(ctx, cfg.Database.URL)
	case "sqlite", "":
		path := cfg.Database.Path
		if path == "" {
			path = sqlite.DefaultPath()
		}
		dao, err = sqlite.Open(ctx, path)
	default:
		return nil, nil, apperrors.InvalidField("database.driver", cfg.Database.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if err := dao.Close(); err != nil {
			logger.Warn("failed to close run history", zap.Error(err))
		}
	}
	return dao, cleanup, nil
}

// ProvideUploader connects to object storage when it is enabled. A disabled
// uploader is a nil interface.
func ProvideUploader(ctx context.Context, cfg *config.Config) (storage.Uploader, error) {
	if !cfg.Storage.Enabled {
		return nil, nil
	}
	s, err := storage.NewMinioStorage(ctx, cfg.Storage.Config)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideExecutor starts the expiry sweeper. Cleanup cancels running tasks
// and waits for them.
func ProvideExecutor(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*tasks.Executor, func()) {
	ex := tasks.NewExecutor(logger, cfg.Server.TaskExpiration)
	if cfg.Server.SweepInterval > 0 {
		ex.StartSweeper(ctx, cfg.Server.SweepInterval)
	}
	return ex, ex.Close
}

func ProvideServerConfig(cfg *config.Config) server.Config {
	sc := server.DefaultConfig()
	if cfg.Server.Addr != "" {
		sc.Addr = cfg.Server.Addr
	}
	if cfg.Server.Mode != "" {
		sc.Mode = cfg.Server.Mode
	}
	return sc
}
