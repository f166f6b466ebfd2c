package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tdr-review/logic/engine"
	"tdr-review/pkg/logger"
	"tdr-review/types"
)

type PollerConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	// ListLimit bounds how many recent jobs are fetched per tick.
	ListLimit int
}

// Poller waits for a submitted job to reach a terminal state.
type Poller struct {
	engine engine.Engine
	cfg    PollerConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPoller(e engine.Engine, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 1500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 20
	}
	return &Poller{engine: e, cfg: cfg, now: time.Now, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Wait polls until the job completes, fails, or the time budget runs out.
// The handle's own session id wins; fallbackSessionID covers handles without one.
func (p *Poller) Wait(ctx context.Context, handle types.JobHandle, fallbackSessionID string) (*types.Job, error) {
	sessionID := strings.TrimSpace(handle.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(fallbackSessionID)
	}
	jobID := strings.TrimSpace(handle.JobID)
	if sessionID == "" || jobID == "" {
		return nil, types.Errorf(types.KindInvalidIdentifiers, "session id %q, job id %q", sessionID, jobID)
	}

	start := p.now()
	for attempt := 1; ; attempt++ {
		jobs, err := p.engine.ListJobs(ctx, sessionID, p.cfg.ListLimit)
		if err != nil {
			return nil, types.Wrap(types.KindEngineFailure, "list jobs", err)
		}

		status := types.JobStatus("")
		for i := range jobs {
			if jobs[i].ID != jobID {
				continue
			}
			status = jobs[i].Status
			if status == types.JobCompleted {
				job := jobs[i]
				if job.SessionID == "" {
					job.SessionID = sessionID
				}
				logger.Info(ctx, "analysis job completed", "job_id", jobID, "attempts", attempt, "elapsed", p.now().Sub(start))
				return &job, nil
			}
			if status.IsFailure() {
				return nil, types.TerminalFailure(jobID, status)
			}
			break
		}
		logger.Debug(ctx, "analysis job pending", "job_id", jobID, "status", status, "attempt", attempt)

		if elapsed := p.now().Sub(start); elapsed >= p.cfg.Timeout {
			return nil, types.Errorf(types.KindJobTimeout, "job %s not finished after %s", jobID, elapsed.Round(time.Millisecond))
		}
		if err := p.sleep(ctx, p.cfg.Interval); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, types.Wrap(types.KindJobTimeout, "wait for job "+jobID, err)
			}
			return nil, fmt.Errorf("wait for job %s: %w", jobID, err)
		}
	}
}
