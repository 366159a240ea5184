// Package notification contains the domain model shared by the push
// delivery pipeline and its storage adapters.
package notification

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a Job. Sent and Failed are terminal;
// a job transitions out of Pending at most once per delivery attempt.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Kind selects how a Job's recipients are resolved.
type Kind string

const (
	// KindUser targets a single recipient id.
	KindUser Kind = "user"
	// KindUserList targets an explicit list of recipient ids.
	KindUserList Kind = "user-list"
	// KindEvent targets an event's attendees plus its waiting list.
	KindEvent Kind = "event"
	// KindTopic is delivered via the gateway's native topic broadcast
	// and bypasses token resolution entirely.
	KindTopic Kind = "topic"
	// KindTokens carries raw device tokens supplied out-of-band. They
	// have no owner, so invalid ones cannot be pruned from the store.
	KindTokens Kind = "tokens"
	// KindGlobal fans out to every owner with a registered token.
	KindGlobal Kind = "global"
	// KindFeedback fans out to all admin users.
	KindFeedback Kind = "feedback"
)

// Job is one logical notification delivery request. ID is empty for
// synchronous ad-hoc sends, which are never persisted.
type Job struct {
	ID         string            `json:"id,omitempty" firestore:"-"`
	Kind       Kind              `json:"kind" firestore:"kind"`
	Recipient  string            `json:"recipientUid,omitempty" firestore:"recipientUid,omitempty"`
	Recipients []string          `json:"recipientUids,omitempty" firestore:"recipientUids,omitempty"`
	EventID    string            `json:"eventId,omitempty" firestore:"eventId,omitempty"`
	Topic      string            `json:"topic,omitempty" firestore:"topic,omitempty"`
	Tokens     []string          `json:"tokenList,omitempty" firestore:"tokenList,omitempty"`
	Title      string            `json:"title" firestore:"title"`
	Body       string            `json:"body,omitempty" firestore:"body,omitempty"`
	Data       map[string]string `json:"data,omitempty" firestore:"data,omitempty"`
	Status     Status            `json:"status" firestore:"status"`
	CreatedAt  time.Time         `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
}

// Validate checks that the job carries the addressing fields its kind
// requires. It runs at the resolver boundary so malformed jobs fail the
// attempt instead of silently targeting nobody.
func (j *Job) Validate() error {
	switch j.Kind {
	case KindUser:
		if j.Recipient == "" {
			return fmt.Errorf("job %q: kind %q requires recipientUid", j.ID, j.Kind)
		}
	case KindUserList:
		if len(j.Recipients) == 0 {
			return fmt.Errorf("job %q: kind %q requires recipientUids", j.ID, j.Kind)
		}
	case KindEvent:
		if j.EventID == "" {
			return fmt.Errorf("job %q: kind %q requires eventId", j.ID, j.Kind)
		}
	case KindTopic:
		if j.Topic == "" {
			return fmt.Errorf("job %q: kind %q requires topic", j.ID, j.Kind)
		}
	case KindTokens:
		if len(j.Tokens) == 0 {
			return fmt.Errorf("job %q: kind %q requires tokenList", j.ID, j.Kind)
		}
	case KindGlobal, KindFeedback:
		// No addressing fields.
	default:
		return fmt.Errorf("job %q: unknown kind %q", j.ID, j.Kind)
	}
	return nil
}

// Payload is the display content pushed to devices.
type Payload struct {
	Title string
	Body  string
	Data  map[string]string
}

// Payload builds the wire payload for a job.
func (j *Job) Payload() Payload {
	return Payload{Title: j.Title, Body: j.Body, Data: j.Data}
}

// Diagnostics is written alongside the terminal status of a job.
type Diagnostics struct {
	TokensCount          int    `firestore:"tokensCount"`
	SuccessCount         int    `firestore:"successCount"`
	FailureCount         int    `firestore:"failureCount"`
	InvalidTokensRemoved int    `firestore:"invalidTokensRemoved"`
	Error                string `firestore:"error,omitempty"`
}

// Recipient is one resolved delivery target. OwnerID is empty for
// tokens supplied out-of-band; such recipients cannot be deleted from
// the token store.
type Recipient struct {
	Token   string
	OwnerID string
}

// Deletable reports whether the recipient's token has a store handle
// the reconciler may prune.
func (r Recipient) Deletable() bool { return r.OwnerID != "" }

// OutcomeKind classifies the per-token result of one gateway call.
type OutcomeKind string

const (
	OutcomeOK OutcomeKind = "ok"
	// OutcomeInvalidToken: the gateway rejected the token as malformed.
	OutcomeInvalidToken OutcomeKind = "invalid-token"
	// OutcomeNotRegistered: the token once existed but the installation
	// is gone (app uninstalled, registration revoked).
	OutcomeNotRegistered OutcomeKind = "not-registered"
	// OutcomeTransient: the failure may not recur; the token must not
	// be pruned.
	OutcomeTransient OutcomeKind = "transient"
	OutcomeUnknown   OutcomeKind = "unknown"
)

// DeliveryOutcome is the ephemeral per-token result within one batch.
type DeliveryOutcome struct {
	Token   string
	Success bool
	Kind    OutcomeKind
}

// Permanent reports whether the outcome proves the token can never be
// delivered to again.
func (o DeliveryOutcome) Permanent() bool {
	return o.Kind == OutcomeInvalidToken || o.Kind == OutcomeNotRegistered
}
