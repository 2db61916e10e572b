// Package janitor garbage-collects expired ticket-consumption records. It is
// a backstop for stores without native expiry: the sweep is idempotent and
// safe to run concurrently with itself, so it can run on the in-process
// schedule, as an external cron via the sweep CLI command, or both.
package janitor

import (
	"context"
	"time"

	"github.com/jasonlvhit/gocron"
	"go.uber.org/zap"

	"quiz-attempt-service/internal/ledger"
)

type Janitor struct {
	store ledger.Store
	log   *zap.Logger
	now   func() time.Time
}

func New(store ledger.Store, log *zap.Logger) *Janitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Janitor{store: store, log: log.Named("janitor"), now: time.Now}
}

// Sweep deletes ledger entries whose retention window has passed.
func (j *Janitor) Sweep(ctx context.Context) error {
	removed, err := j.store.DeleteExpired(ctx, j.now())
	if err != nil {
		j.log.Error("ledger sweep failed", zap.Error(err))
		return err
	}
	if removed > 0 {
		j.log.Info("ledger sweep", zap.Int("removed", removed))
	}
	return nil
}

// Schedule runs one immediate sweep and then an hourly one until the
// returned stop function is called.
func (j *Janitor) Schedule() func() {
	_ = j.Sweep(context.Background())

	scheduler := gocron.NewScheduler()
	_ = scheduler.Every(1).Hours().Do(func() {
		_ = j.Sweep(context.Background())
	})
	stopped := scheduler.Start()

	return func() {
		stopped <- true
	}
}
