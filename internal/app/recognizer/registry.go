package recognizer

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	apperrors "transcribe4all/internal/app/errors"
)

// Factory creates an engine from its configuration.
type Factory func(cfg Configuration, logger *zap.Logger) (Recognizer, error)

var (
	engines   = make(map[string]Factory)
	enginesMu sync.RWMutex
)

// Register makes an engine available under name. Engines register from init.
func Register(name string, factory Factory) {
	enginesMu.Lock()
	defer enginesMu.Unlock()
	engines[name] = factory
}

// New creates the engine registered under name.
func New(name string, cfg Configuration, logger *zap.Logger) (Recognizer, error) {
	enginesMu.RLock()
	factory, ok := engines[name]
	enginesMu.RUnlock()

	if !ok {
		return nil, apperrors.Kind(apperrors.ErrRecognizerInit,
			apperrors.Wrapf(apperrors.ErrEngineNotFound, "engine %q", name))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rec, err := factory(cfg, logger.With(zap.String("engine", name)))
	if err != nil {
		return nil, apperrors.Kind(apperrors.ErrRecognizerInit, err)
	}
	return rec, nil
}

// Engines lists the registered engine names in order.
func Engines() []string {
	enginesMu.RLock()
	defer enginesMu.RUnlock()

	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
