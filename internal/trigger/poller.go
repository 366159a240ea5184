// Package trigger contains the entry points that feed pending jobs into
// the dispatch pipeline: a periodic poller and a Pub/Sub consumer.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	intdispatch "github.com/floatit/go-push-service/internal/dispatch"
	"github.com/floatit/go-push-service/pkg/dispatch"
	"github.com/floatit/go-push-service/pkg/notification"
)

// Dispatcher runs one delivery attempt for a job.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *notification.Job) (*intdispatch.Result, error)
}

// Poller periodically drains the pending job queue. Jobs whose terminal
// write failed stay pending and are simply picked up on a later pass.
type Poller struct {
	jobs       dispatch.JobStore
	dispatcher Dispatcher
	interval   time.Duration
	batchSize  int
	logger     *slog.Logger
}

func NewPoller(jobs dispatch.JobStore, dispatcher Dispatcher, interval time.Duration, batchSize int, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Poller{
		jobs:       jobs,
		dispatcher: dispatcher,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger.With("component", "Poller"),
	}
}

// Start runs the polling loop until the context is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.interval, "batch_size", p.batchSize)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return ctx.Err()
		case <-ticker.C:
			if processed, err := p.RunOnce(ctx); err != nil {
				p.logger.Error("polling pass failed", "processed", processed, "err", err)
			}
		}
	}
}

// RunOnce drains one batch of pending jobs sequentially. It returns how
// many jobs reached a terminal state. The listing is retried with
// backoff; dispatch failures do not stop the pass, since each job
// records its own outcome.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	var pending []*notification.Job
	list := func() error {
		var err error
		pending, err = p.jobs.ListPending(ctx, p.batchSize)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(list, policy); err != nil {
		return 0, fmt.Errorf("listing pending jobs: %w", err)
	}

	if len(pending) == 0 {
		return 0, nil
	}
	p.logger.Info("processing pending jobs", "count", len(pending))

	processed := 0
	for _, job := range pending {
		if _, err := p.dispatcher.Dispatch(ctx, job); err != nil {
			if errors.Is(err, intdispatch.ErrTerminalWrite) {
				// Still pending in the store; the next pass retries it.
				p.logger.Warn("job left pending after failed terminal write", "job_id", job.ID)
				continue
			}
			// A Failed terminal state was persisted; the job is done.
			p.logger.Warn("job dispatch failed", "job_id", job.ID, "err", err)
		}
		processed++
	}
	return processed, nil
}
