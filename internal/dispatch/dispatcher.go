// Package dispatch contains the delivery pipeline that turns a pending
// notification job into a terminal outcome: resolve recipients, deliver
// in gateway-sized batches, reconcile invalid tokens, persist the result.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/floatit/go-push-service/pkg/dispatch"
	"github.com/floatit/go-push-service/pkg/notification"
)

// ErrTerminalWrite marks a failed terminal-state persist. The job is
// still pending in the store, so the trigger that invoked Dispatch
// should arrange redelivery.
var ErrTerminalWrite = errors.New("terminal state write failed")

// Result is the terminal state of one dispatch attempt.
type Result struct {
	Status      notification.Status
	Diagnostics notification.Diagnostics
}

// Config bounds the delivery fan-out of a single job.
type Config struct {
	// BatchLimit is the gateway's maximum recipients per call.
	BatchLimit int
	// Concurrency caps how many batches of one job are in flight at
	// once.
	Concurrency int
}

// Dispatcher orchestrates one delivery attempt per job. It performs no
// internal retries; re-invoking Dispatch on a still-pending job is the
// only retry mechanism.
type Dispatcher struct {
	resolver    *Resolver
	reconciler  *Reconciler
	gateway     dispatch.Gateway
	jobs        dispatch.JobStore
	batchLimit  int
	concurrency int
	logger      *slog.Logger
}

func NewDispatcher(
	resolver *Resolver,
	reconciler *Reconciler,
	gateway dispatch.Gateway,
	jobs dispatch.JobStore,
	cfg Config,
	logger *slog.Logger,
) *Dispatcher {
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Dispatcher{
		resolver:    resolver,
		reconciler:  reconciler,
		gateway:     gateway,
		jobs:        jobs,
		batchLimit:  cfg.BatchLimit,
		concurrency: cfg.Concurrency,
		logger:      logger.With("component", "Dispatcher"),
	}
}

// Dispatch runs one delivery attempt and writes exactly one terminal
// state for persisted jobs. Ad-hoc jobs (empty id) skip the write and
// return their diagnostics to the caller. The returned error carries
// the pipeline failure, if any; a Failed terminal state is still
// persisted before the error surfaces.
func (d *Dispatcher) Dispatch(ctx context.Context, job *notification.Job) (*Result, error) {
	logger := d.logger.With("job_id", job.ID, "kind", job.Kind)

	// Topic jobs bypass token resolution entirely.
	if job.Kind == notification.KindTopic {
		if err := job.Validate(); err != nil {
			return d.finish(ctx, job, notification.StatusFailed, notification.Diagnostics{Error: err.Error()}, err)
		}
		if err := d.gateway.SendTopic(ctx, job.Topic, job.Payload()); err != nil {
			logger.Error("topic send failed", "topic", job.Topic, "err", err)
			return d.finish(ctx, job, notification.StatusFailed, notification.Diagnostics{Error: err.Error()}, err)
		}
		logger.Info("topic notification sent", "topic", job.Topic)
		return d.finish(ctx, job, notification.StatusSent, notification.Diagnostics{}, nil)
	}

	recipients, err := d.resolver.Resolve(ctx, job)
	if err != nil {
		logger.Error("recipient resolution failed", "err", err)
		return d.finish(ctx, job, notification.StatusFailed, notification.Diagnostics{Error: err.Error()}, err)
	}

	// Absence of a target is not a delivery failure.
	if len(recipients) == 0 {
		logger.Info("no recipients resolved, completing with zero counts")
		return d.finish(ctx, job, notification.StatusSent, notification.Diagnostics{}, nil)
	}

	tokens := make([]string, len(recipients))
	for i, rec := range recipients {
		tokens[i] = rec.Token
	}
	batches := Chunk(tokens, d.batchLimit)

	// Batches are independent gateway calls; deliver them in parallel
	// and join before reconciliation.
	outcomesByBatch := make([][]notification.DeliveryOutcome, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, batch := range batches {
		g.Go(func() error {
			outcomes, err := d.gateway.SendBatch(gctx, batch, job.Payload())
			if err != nil {
				return err
			}
			outcomesByBatch[i] = outcomes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// A transport failure leaves us without per-token outcomes, so
		// no classification and no deletions happen on this path.
		logger.Error("gateway delivery failed", "batches", len(batches), "err", err)
		diag := notification.Diagnostics{TokensCount: len(tokens), Error: err.Error()}
		return d.finish(ctx, job, notification.StatusFailed, diag, err)
	}

	var outcomes []notification.DeliveryOutcome
	for _, batch := range outcomesByBatch {
		outcomes = append(outcomes, batch...)
	}

	tally := d.reconciler.Reconcile(ctx, recipients, outcomes)
	diag := notification.Diagnostics{
		TokensCount:          len(tokens),
		SuccessCount:         tally.Success,
		FailureCount:         tally.Failure,
		InvalidTokensRemoved: tally.Removed,
	}
	logger.Info("notification delivered",
		"tokens", diag.TokensCount,
		"success", diag.SuccessCount,
		"failure", diag.FailureCount,
		"invalid_removed", diag.InvalidTokensRemoved,
	)
	return d.finish(ctx, job, notification.StatusSent, diag, nil)
}

// finish persists the terminal state for stored jobs and folds a failed
// write into the returned error. This is the single exit point of a
// dispatch attempt, so exactly one terminal write happens per call.
func (d *Dispatcher) finish(ctx context.Context, job *notification.Job, status notification.Status, diag notification.Diagnostics, cause error) (*Result, error) {
	result := &Result{Status: status, Diagnostics: diag}
	if job.ID == "" {
		return result, cause
	}
	if err := d.jobs.UpdateTerminal(ctx, job.ID, status, diag); err != nil {
		d.logger.Error("terminal state write failed, job left pending", "job_id", job.ID, "err", err)
		return result, errors.Join(cause, fmt.Errorf("%w: %v", ErrTerminalWrite, err))
	}
	return result, cause
}
