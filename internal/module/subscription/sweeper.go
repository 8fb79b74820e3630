package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sflix/server/internal/utils/metrics"
	"go.uber.org/zap"
)

// SweeperConfig contains expiry sweeper configuration.
type SweeperConfig struct {
	Interval time.Duration
	// Timeout bounds one sweep pass.
	Timeout time.Duration
}

// DefaultSweeperConfig returns the default sweeper configuration.
func DefaultSweeperConfig() *SweeperConfig {
	return &SweeperConfig{
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
	}
}

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	Scanned int
	Demoted int
	Failed  int
}

// Sweeper periodically demotes expired active subscriptions.
type Sweeper struct {
	store   Store
	config  *SweeperConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewSweeper creates a new expiry sweeper.
func NewSweeper(store Store, config *SweeperConfig, m *metrics.Metrics, logger *zap.Logger) *Sweeper {
	if config == nil {
		config = DefaultSweeperConfig()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweeperConfig().Interval
	}
	return &Sweeper{
		store:   store,
		config:  config,
		metrics: m,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Sweep reconciles every active subscription against now and persists each
// demotion. A failed write is logged and counted without stopping the pass.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	records, err := s.store.ListActive(ctx)
	if err != nil {
		return result, fmt.Errorf("%w: list active subscriptions: %v", ErrStore, err)
	}
	result.Scanned = len(records)

	reconciled := Reconcile(records, now)
	for i := range reconciled {
		if reconciled[i].Subscription.Status == records[i].Subscription.Status {
			continue
		}
		userID := records[i].UserID

		changed, err := s.store.DemoteExpired(ctx, userID, now)
		if err != nil {
			result.Failed++
			s.logger.Error("failed to demote expired subscription",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		if !changed {
			s.logger.Debug("subscription changed before demotion", zap.String("user_id", userID))
			continue
		}
		result.Demoted++
	}

	s.metrics.RecordSweep(result.Demoted, result.Failed)
	if result.Demoted > 0 || result.Failed > 0 {
		s.logger.Info("expiry sweep finished",
			zap.Int("scanned", result.Scanned),
			zap.Int("demoted", result.Demoted),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

// RunOnce performs one bounded sweep at the current time.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}
	return s.Sweep(ctx, s.now())
}

// Start runs a sweep immediately and then on every interval until Stop.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop(s.stop, s.done)
}

// Stop halts the sweep loop and waits for an in-flight pass to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	done := s.done
	s.mu.Unlock()

	<-done
}

func (s *Sweeper) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.tick()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Sweeper) tick() {
	if _, err := s.RunOnce(context.Background()); err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
	}
}
