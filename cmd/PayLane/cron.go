package main

import (
	"PayLane/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/robfig/cron/v3"
)

// StartIdempotencySweepCron starts the periodic idempotency sweep.
// The store already expires entries lazily on access; the sweep bounds how
// long an untouched expired entry can linger. Runs every 5 minutes.
func StartIdempotencySweepCron(store *biz.IdempotencyStore, logger log.Logger) *cron.Cron {
	helper := log.NewHelper(logger)

	c := cron.New()

	_, err := c.AddFunc("@every 5m", func() {
		removed := store.Sweep()
		if removed > 0 {
			helper.Infow("msg", "idempotency sweep completed", "removed", removed, "remaining", store.Size())
		}
	})

	if err != nil {
		helper.Errorw("msg", "failed to register idempotency sweep cron job", "error", err)
		return nil
	}

	c.Start()
	helper.Info("idempotency sweep cron job started: runs every 5 minutes")

	return c
}
