package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	intdispatch "github.com/floatit/go-push-service/internal/dispatch"
	"github.com/floatit/go-push-service/pkg/dispatch"
	"github.com/floatit/go-push-service/pkg/notification"
)

// jobMessage is the Pub/Sub payload published when a job document is
// created.
type jobMessage struct {
	JobID string `json:"jobId"`
}

// ackAction is the decision the message handler hands back to the
// Pub/Sub receive loop.
type ackAction int

const (
	ackMessage ackAction = iota
	nackMessage
)

// Consumer dispatches jobs announced on a Pub/Sub subscription. A
// message is only nacked when the job may legitimately be redelivered:
// a transient store error, or a dispatch whose terminal write failed.
// Everything else is acked so poison messages cannot loop forever.
type Consumer struct {
	subscriber *pubsub.Subscriber
	jobs       dispatch.JobStore
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewConsumer(client *pubsub.Client, subscription string, jobs dispatch.JobStore, dispatcher Dispatcher, logger *slog.Logger) *Consumer {
	subscriber := client.Subscriber(subscription)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &Consumer{
		subscriber: subscriber,
		jobs:       jobs,
		dispatcher: dispatcher,
		logger:     logger.With("component", "PubSubConsumer"),
	}
}

// Start blocks receiving messages until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("pubsub consumer started")
	return c.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		switch c.handle(ctx, msg.Data) {
		case nackMessage:
			msg.Nack()
		default:
			msg.Ack()
		}
	})
}

func (c *Consumer) handle(ctx context.Context, data []byte) ackAction {
	var msg jobMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.JobID == "" {
		c.logger.Warn("discarding malformed job message", "payload", string(data))
		return ackMessage
	}
	logger := c.logger.With("job_id", msg.JobID)

	job, err := c.jobs.GetByID(ctx, msg.JobID)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			logger.Warn("job document not found, discarding message")
			return ackMessage
		}
		logger.Error("fetching job failed", "err", err)
		return nackMessage
	}

	// Redeliveries of already-terminal jobs are dropped here; the
	// status filter is what makes reprocessing safe.
	if job.Status != notification.StatusPending {
		logger.Info("job already terminal, discarding message", "status", job.Status)
		return ackMessage
	}

	if _, err := c.dispatcher.Dispatch(ctx, job); err != nil {
		if errors.Is(err, intdispatch.ErrTerminalWrite) {
			logger.Warn("terminal write failed, requesting redelivery")
			return nackMessage
		}
		// Failed state is persisted; redelivering would change nothing.
		logger.Warn("job dispatch failed", "err", err)
	}
	return ackMessage
}
