package cli

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/twentyq/internal/dataset"
	"github.com/mesh-intelligence/twentyq/internal/game"
	"github.com/mesh-intelligence/twentyq/internal/learning"
	"github.com/mesh-intelligence/twentyq/internal/logging"
	"github.com/mesh-intelligence/twentyq/internal/metrics"
	"github.com/mesh-intelligence/twentyq/internal/tree"
	"github.com/mesh-intelligence/twentyq/pkg/sqlite"
	"github.com/mesh-intelligence/twentyq/pkg/types"
)

// app is everything a command needs, wired from Settings.
type app struct {
	log      *zap.Logger
	metrics  *metrics.Metrics
	backend  types.Store
	data     *dataset.Store
	coord    *learning.Coordinator
	sessions *game.Manager
}

// openData attaches the backend and loads the dataset without training.
func openData(s Settings) (*app, error) {
	log, err := logging.New(s.Log)
	if err != nil {
		return nil, err
	}
	backend, err := sqlite.Open(s.Config)
	if err != nil {
		return nil, err
	}
	data, err := dataset.Open(backend, log)
	if err != nil {
		_ = backend.Detach()
		return nil, err
	}
	return &app{log: log, metrics: metrics.New(), backend: backend, data: data}, nil
}

// openApp is openData plus the first model and the session manager.
func openApp(s Settings) (*app, error) {
	a, err := openData(s)
	if err != nil {
		return nil, err
	}
	a.coord, err = learning.Bootstrap(a.data, tree.NewCART(s.Trainer), a.log, a.metrics)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.sessions = game.NewManager(a.coord.Models(), a.coord, a.log, a.metrics,
		game.WithIdleTTL(s.Server.SessionTTL),
		game.WithMaxSessions(s.Server.MaxSessions))
	return a, nil
}

// Close detaches the backend and flushes the logger.
func (a *app) Close() error {
	err := a.backend.Detach()
	// Sync on stderr returns EINVAL on some platforms.
	_ = a.log.Sync()
	return err
}
