//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"transcribe4all/internal/api/server"
	"transcribe4all/internal/app/batch"
	"transcribe4all/internal/app/service"
	"transcribe4all/internal/config"
)

// InitializeService wires the service used by the CLI.
func InitializeService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*service.Service, func(), error) {
	wire.Build(ServiceSet, ProvideProgress, ProvideRunner)
	return nil, nil, nil
}

// InitializeServer wires the HTTP API.
func InitializeServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*server.Server, func(), error) {
	wire.Build(ServerSet)
	return nil, nil, nil
}

// InitializeBatch wires directory mode. The batch counter and the per-file
// read bars share one progress container.
func InitializeBatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*batch.Batch, func(), error) {
	wire.Build(
		ServiceSet,
		ProvideProgress,
		ProvideRunner,
		batch.New,
		wire.Bind(new(batch.Transcriber), new(*service.Service)),
	)
	return nil, nil, nil
}
