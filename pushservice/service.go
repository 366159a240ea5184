// Package pushservice assembles the delivery pipeline, the admin API
// and the job triggers into one runnable service.
package pushservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"cloud.google.com/go/pubsub/v2"
	"golang.org/x/sync/errgroup"

	"github.com/floatit/go-push-service/internal/api"
	intdispatch "github.com/floatit/go-push-service/internal/dispatch"
	"github.com/floatit/go-push-service/internal/trigger"
	"github.com/floatit/go-push-service/pkg/dispatch"
	"github.com/floatit/go-push-service/pkg/notification"
	"github.com/floatit/go-push-service/pushservice/config"
)

// JobStore is the full job persistence surface the service wires up:
// the pipeline's read/update side plus creation for the admin API.
type JobStore interface {
	dispatch.JobStore
	Create(ctx context.Context, job *notification.Job) (string, error)
}

// Stores bundles the persistence collaborators New wires together.
type Stores struct {
	Tokens dispatch.TokenStore
	Jobs   JobStore
	Roster dispatch.EventRoster
	Admins dispatch.AdminIndex
	Prefs  dispatch.Preferences
}

type Wrapper struct {
	server   *http.Server
	poller   *trigger.Poller
	consumer *trigger.Consumer
	logger   *slog.Logger

	cancelBackground context.CancelFunc
	background       *errgroup.Group
}

// New assembles the service. The Pub/Sub client is optional; leave it
// nil (or the subscription id empty) to run on polling alone.
func New(
	cfg *config.Config,
	stores Stores,
	gateway dispatch.Gateway,
	verifier api.IDTokenVerifier,
	psClient *pubsub.Client,
	logger *slog.Logger,
) (*Wrapper, error) {
	if stores.Tokens == nil || stores.Jobs == nil {
		return nil, errors.New("token and job stores are required")
	}

	resolver := intdispatch.NewResolver(stores.Tokens, stores.Roster, stores.Admins, stores.Prefs, logger)
	reconciler := intdispatch.NewReconciler(stores.Tokens, logger)
	dispatcher := intdispatch.NewDispatcher(resolver, reconciler, gateway, stores.Jobs, intdispatch.Config{
		BatchLimit:  cfg.Dispatch.BatchLimit,
		Concurrency: cfg.Dispatch.Concurrency,
	}, logger)

	poller := trigger.NewPoller(stores.Jobs, dispatcher, cfg.Poller.Interval, cfg.Poller.BatchSize, logger)

	var consumer *trigger.Consumer
	if cfg.SubscriptionID != "" && psClient != nil {
		consumer = trigger.NewConsumer(psClient, cfg.SubscriptionID, stores.Jobs, dispatcher, logger)
	}

	sendAPI := api.NewSendAPI(dispatcher, stores.Jobs, poller, logger)
	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: api.Routes(sendAPI, verifier, logger),
	}

	return &Wrapper{
		server:   server,
		poller:   poller,
		consumer: consumer,
		logger:   logger.With("component", "Service"),
	}, nil
}

// Start launches the triggers and blocks serving HTTP until Shutdown is
// called.
func (w *Wrapper) Start(ctx context.Context) error {
	backgroundCtx, cancel := context.WithCancel(ctx)
	w.cancelBackground = cancel

	g, gctx := errgroup.WithContext(backgroundCtx)
	w.background = g

	g.Go(func() error {
		if err := w.poller.Start(gctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	if w.consumer != nil {
		g.Go(func() error {
			if err := w.consumer.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	w.logger.Info("service listening", "addr", w.server.Addr)
	if err := w.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		cancel()
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops the triggers and drains the HTTP server.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("shutting down service components")
	var finalErr error

	if w.cancelBackground != nil {
		w.cancelBackground()
	}
	if w.background != nil {
		if err := w.background.Wait(); err != nil {
			w.logger.Error("background trigger shutdown failed", "err", err)
			finalErr = err
		}
	}
	if err := w.server.Shutdown(ctx); err != nil {
		w.logger.Error("http server shutdown failed", "err", err)
		finalErr = err
	}

	w.logger.Info("service shutdown complete")
	return finalErr
}
