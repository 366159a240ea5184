// Package fcm implements the push gateway over Firebase Cloud Messaging.
package fcm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"firebase.google.com/go/v4/errorutils"
	"firebase.google.com/go/v4/messaging"

	"github.com/floatit/go-push-service/pkg/notification"
)

// DefaultBatchLimit is FCM's maximum number of tokens per multicast call.
const DefaultBatchLimit = 500

// MessagingClient defines the subset of the Firebase Messaging API we use.
// This interface allows us to mock the client for unit testing.
type MessagingClient interface {
	SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error)
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// Gateway satisfies dispatch.Gateway using an FCM messaging client.
type Gateway struct {
	client  MessagingClient // *messaging.Client satisfies this
	timeout time.Duration
	logger  *slog.Logger
}

// NewGateway accepts the concrete client but stores it as the interface.
// Every gateway call is bounded by timeout; zero means no bound beyond
// the caller's context.
func NewGateway(client MessagingClient, timeout time.Duration, logger *slog.Logger) *Gateway {
	return &Gateway{
		client:  client,
		timeout: timeout,
		logger:  logger.With("component", "FCMGateway"),
	}
}

// SendBatch delivers one multicast batch. The returned slice has one
// outcome per input token in input order. A non-nil error is a transport
// failure for the whole batch; no outcomes accompany it.
func (g *Gateway) SendBatch(ctx context.Context, tokens []string, payload notification.Payload) ([]notification.DeliveryOutcome, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) > DefaultBatchLimit {
		return nil, fmt.Errorf("batch of %d exceeds fcm multicast limit %d", len(tokens), DefaultBatchLimit)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   payload.Data,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Webpush: &messaging.WebpushConfig{
			Notification: &messaging.WebpushNotification{
				Title: payload.Title,
				Body:  payload.Body,
				Icon:  "/assets/icons/icon-192x192.png",
			},
		},
	}

	br, err := g.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("fcm multicast transport failed: %w", err)
	}

	outcomes := make([]notification.DeliveryOutcome, len(tokens))
	for idx, resp := range br.Responses {
		out := notification.DeliveryOutcome{Token: tokens[idx]}
		if resp.Success {
			out.Success = true
			out.Kind = notification.OutcomeOK
		} else {
			out.Kind = classify(resp.Error)
		}
		outcomes[idx] = out
	}

	g.logger.Debug("multicast batch complete",
		"tokens", len(tokens),
		"success", br.SuccessCount,
		"failure", br.FailureCount,
	)
	return outcomes, nil
}

// SendTopic delivers the payload through FCM's native topic broadcast.
func (g *Gateway) SendTopic(ctx context.Context, topic string, payload notification.Payload) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	msg := &messaging.Message{
		Topic: topic,
		Data:  payload.Data,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
	}

	id, err := g.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm topic send failed: %w", err)
	}
	g.logger.Debug("topic message sent", "topic", topic, "message_id", id)
	return nil
}

// classify maps an FCM per-token error onto the outcome taxonomy. Only
// the two registration errors are permanent; everything else is treated
// as transient or unknown so the reconciler never prunes a merely
// undeliverable token.
func classify(err error) notification.OutcomeKind {
	switch {
	case messaging.IsRegistrationTokenNotRegistered(err):
		return notification.OutcomeNotRegistered
	case messaging.IsInvalidArgument(err):
		return notification.OutcomeInvalidToken
	case errorutils.IsUnavailable(err), errorutils.IsInternal(err), errorutils.IsResourceExhausted(err):
		return notification.OutcomeTransient
	default:
		return notification.OutcomeUnknown
	}
}
