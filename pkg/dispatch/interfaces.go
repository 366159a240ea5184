// Package dispatch defines the contracts between the delivery pipeline
// and its external collaborators: the token and job stores, the event
// roster, and the push gateway.
package dispatch

import (
	"context"

	"github.com/floatit/go-push-service/pkg/notification"
)

// TokenStore manages per-owner device push tokens.
type TokenStore interface {
	// ListTokens returns every registered token for the owner. An owner
	// with no tokens yields an empty slice, not an error.
	ListTokens(ctx context.Context, ownerID string) ([]string, error)

	// DeleteToken removes one token. Deleting an absent token is not an
	// error; the storage key is derived from the raw token value.
	DeleteToken(ctx context.Context, ownerID, token string) error

	// ListOwners enumerates every owner that has registered at least one
	// token. Used only for global (non-topic) fan-out.
	ListOwners(ctx context.Context) ([]string, error)
}

// JobStore persists notification jobs and their terminal outcomes.
type JobStore interface {
	// ListPending returns up to limit jobs still awaiting delivery.
	ListPending(ctx context.Context, limit int) ([]*notification.Job, error)

	// GetByID fetches a single job.
	GetByID(ctx context.Context, id string) (*notification.Job, error)

	// UpdateTerminal atomically writes the terminal status and the
	// delivery diagnostics for one job.
	UpdateTerminal(ctx context.Context, id string, status notification.Status, diag notification.Diagnostics) error
}

// EventRoster resolves an event to its audience.
type EventRoster interface {
	// Audience returns the deduplicated union of attendees and waiting
	// list for the event. An unknown event yields an empty audience,
	// not an error.
	Audience(ctx context.Context, eventID string) ([]string, error)
}

// AdminIndex lists the elevated-privilege users targeted by feedback
// fan-out.
type AdminIndex interface {
	ListAdmins(ctx context.Context) ([]string, error)
}

// Preferences exposes per-user delivery opt-out.
type Preferences interface {
	// NotificationsEnabled reports whether the owner accepts push
	// notifications. Unknown owners default to enabled.
	NotificationsEnabled(ctx context.Context, ownerID string) (bool, error)
}

// Gateway is the push gateway the pipeline delivers through.
type Gateway interface {
	// SendBatch delivers the payload to a bounded batch of tokens and
	// returns one outcome per input token, in input order. A returned
	// error means the call itself failed and no per-token outcomes are
	// available.
	SendBatch(ctx context.Context, tokens []string, payload notification.Payload) ([]notification.DeliveryOutcome, error)

	// SendTopic delivers the payload to a broadcast topic.
	SendTopic(ctx context.Context, topic string, payload notification.Payload) error
}
