package job

import (
	"context"
	"time"

	"tdr-review/pkg/logger"

	"github.com/robfig/cron/v3"
)

// StaleExpirer flags documents left in processing since before cutoff.
type StaleExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Reaper fails documents whose extraction outlived maxAge, e.g. after a crash mid-run.
type Reaper struct {
	docs   StaleExpirer
	maxAge time.Duration
	now    func() time.Time
}

func NewReaper(docs StaleExpirer, maxAge time.Duration) *Reaper {
	return &Reaper{docs: docs, maxAge: maxAge, now: time.Now}
}

// Run performs one sweep.
func (r *Reaper) Run(ctx context.Context) (int64, error) {
	rows, err := r.docs.ExpireStale(ctx, r.now().Add(-r.maxAge))
	if err != nil {
		logger.Error(ctx, "stale document sweep failed", "error", err)
		return 0, err
	}
	if rows > 0 {
		logger.Warn(ctx, "flagged stale documents as failed", "count", rows)
	}
	return rows, nil
}

// StartCronJob schedules the reaper (standard cron or @every) and starts the scheduler.
func StartCronJob(r *Reaper, schedule string) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		_, _ = r.Run(context.Background())
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
