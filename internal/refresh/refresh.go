package refresh

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Target is refreshed on every tick.
type Target interface {
	RefreshStations(ctx context.Context)
}

// Refresher periodically re-fetches station weather so the grid stays warm
// between page loads, the way the browser app re-fetched on tab
// re-activation.
type Refresher struct {
	scheduler *gocron.Scheduler
	target    Target
	interval  time.Duration
	logger    *zap.SugaredLogger
}

func New(target Target, interval time.Duration, logger *zap.SugaredLogger) *Refresher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Refresher{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		logger:    logger,
	}
}

func (r *Refresher) Start() error {
	interval := r.interval
	if interval <= 0 {
		interval = 15 * time.Minute
		r.logger.Warnw("refresh interval not positive, using default",
			"configured", r.interval.String(), "interval", interval.String())
	}

	_, err := r.scheduler.Every(interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		r.target.RefreshStations(ctx)
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	r.logger.Infow("station refresher started", "interval", r.interval.String())
	return nil
}

func (r *Refresher) Stop() {
	if r.scheduler != nil {
		r.scheduler.Stop()
	}
}
