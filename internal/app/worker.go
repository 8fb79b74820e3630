package app

import (
	"github.com/sflix/server/internal/module/subscription"
	"github.com/sflix/server/internal/module/user"
	"github.com/sflix/server/internal/shared/config"
	"github.com/sflix/server/internal/shared/database"
	"github.com/sflix/server/internal/shared/logger"
	"github.com/sflix/server/internal/utils/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Worker runs the expiry sweeper without the HTTP surface.
type Worker struct {
	db      *gorm.DB
	logger  *zap.Logger
	sweeper *subscription.Sweeper
}

// NewWorker connects to the database and builds the sweeper.
func NewWorker(cfg *config.Config) (*Worker, error) {
	log := logger.New(&logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "sflix-sweeper",
	})

	db, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	sweeper := subscription.NewSweeper(user.NewRepository(db), &subscription.SweeperConfig{
		Interval: cfg.Sweeper.Interval,
		Timeout:  cfg.Sweeper.Timeout,
	}, metrics.New("sflix"), log.Named("sweeper"))

	return &Worker{db: db, logger: log, sweeper: sweeper}, nil
}

// Sweeper returns the expiry sweeper.
func (w *Worker) Sweeper() *subscription.Sweeper {
	return w.sweeper
}

// Logger returns the worker logger.
func (w *Worker) Logger() *zap.Logger {
	return w.logger
}

// Close stops the sweeper and releases resources.
func (w *Worker) Close() {
	w.sweeper.Stop()
	_ = database.Close(w.db)
	_ = w.logger.Sync()
}
