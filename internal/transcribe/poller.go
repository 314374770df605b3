package transcribe

import (
	"context"
	"fmt"
	"time"

	"github.com/gattil/sup-hcls-generate-clinical-notes-with-ai/internal/logger"
)

// StatusClient is the slice of the transcription client the poller needs.
type StatusClient interface {
	GetJob(ctx context.Context, name string) (*Job, error)
}

// PollerConfig tunes the status wait loop. Interval is the initial delay
// between queries; every retry multiplies it by Multiplier up to MaxInterval.
// MaxWait bounds the whole wait; zero means no bound.
type PollerConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	Multiplier  float64
	MaxWait     time.Duration
}

// Poller waits for a single transcription job to reach a terminal status.
// It tracks one job per call; there is no queue and no cancellation beyond
// the caller's context.
type Poller struct {
	client StatusClient
	cfg    PollerConfig
}

func NewPoller(client StatusClient, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval
	}
	return &Poller{client: client, cfg: cfg}
}

// WaitForCompletion queries job status until the service reports COMPLETED or
// FAILED and returns the terminal job. Transient query errors are retried;
// they never surface as a job outcome. The returned job status is always
// terminal.
func (p *Poller) WaitForCompletion(ctx context.Context, name string) (*Job, error) {
	var deadline time.Time
	if p.cfg.MaxWait > 0 {
		deadline = time.Now().Add(p.cfg.MaxWait)
	}

	interval := p.cfg.Interval
	for {
		job, err := p.client.GetJob(ctx, name)
		if err != nil {
			logger.Warn(ctx, "job status query failed, retrying", logger.Fields{
				"job_name": name,
				"error":    err.Error(),
			})
		} else if job.Status.IsTerminal() {
			logger.Info(ctx, "transcription job reached terminal status", logger.Fields{
				"job_name": name,
				"status":   string(job.Status),
			})
			return job, nil
		} else {
			logger.Debug(ctx, "transcription job still running", logger.Fields{
				"job_name": name,
				"status":   string(job.Status),
			})
		}

		if !deadline.IsZero() && time.Now().Add(interval).After(deadline) {
			return nil, fmt.Errorf("timed out after %s waiting for job %s", p.cfg.MaxWait, name)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		interval = time.Duration(float64(interval) * p.cfg.Multiplier)
		if interval > p.cfg.MaxInterval {
			interval = p.cfg.MaxInterval
		}
	}
}
