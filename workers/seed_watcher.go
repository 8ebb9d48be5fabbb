// workers/seed_watcher.go
package workers

import (
	"context"
	"fmt"
	"time"

	"bluewar-ledger/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// SeedWatcher re-runs the blue_records import on an interval so an edited
// seed file is picked up without a restart. Failures are logged, never fatal.
type SeedWatcher struct {
	seed     *services.SeedService
	interval time.Duration
	log      *zap.Logger
	sched    gocron.Scheduler
}

func NewSeedWatcher(seed *services.SeedService, interval time.Duration, log *zap.Logger) *SeedWatcher {
	return &SeedWatcher{seed: seed, interval: interval, log: log}
}

// Start schedules the recheck job and stops it when ctx is cancelled.
// A zero interval disables the watcher.
func (w *SeedWatcher) Start(ctx context.Context) error {
	if w.interval <= 0 {
		w.log.Info("⏸️ seed watcher disabled")
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.check(ctx) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule seed recheck: %w", err)
	}
	w.sched = sched
	sched.Start()
	w.log.Info("🔁 seed watcher started", zap.Duration("interval", w.interval))

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			w.log.Warn("seed watcher shutdown", zap.Error(err))
		}
		w.log.Info("⏹️ seed watcher stopped")
	}()
	return nil
}

func (w *SeedWatcher) check(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := w.seed.EnsureBlueRecordsSeed(ctx)
	if err != nil {
		w.log.Error("❌ seed recheck failed", zap.String("source", res.Source), zap.Error(err))
		return
	}
	if res.Applied {
		w.log.Info("✅ seed changed and re-applied",
			zap.String("sha256", res.SHA256),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
		)
	}
}
