package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/floatit/go-push-service/pkg/dispatch"
	"github.com/floatit/go-push-service/pkg/notification"
)

// Resolver maps a job's addressing mode onto a deduplicated set of
// delivery recipients backed by the token store.
type Resolver struct {
	tokens dispatch.TokenStore
	roster dispatch.EventRoster
	admins dispatch.AdminIndex
	prefs  dispatch.Preferences
	logger *slog.Logger
}

func NewResolver(
	tokens dispatch.TokenStore,
	roster dispatch.EventRoster,
	admins dispatch.AdminIndex,
	prefs dispatch.Preferences,
	logger *slog.Logger,
) *Resolver {
	return &Resolver{
		tokens: tokens,
		roster: roster,
		admins: admins,
		prefs:  prefs,
		logger: logger.With("component", "Resolver"),
	}
}

// Resolve returns the recipients for the job, deduplicated by token
// value; the first owner reached for a token wins. Topic jobs resolve
// to nil: they are delivered through the gateway's topic primitive and
// never through individual tokens.
func (r *Resolver) Resolve(ctx context.Context, job *notification.Job) ([]notification.Recipient, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	switch job.Kind {
	case notification.KindTopic:
		return nil, nil
	case notification.KindTokens:
		// Supplied out-of-band, no store lookup and no delete handle.
		recipients := make([]notification.Recipient, 0, len(job.Tokens))
		seen := make(map[string]struct{}, len(job.Tokens))
		for _, tok := range job.Tokens {
			if tok == "" {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			recipients = append(recipients, notification.Recipient{Token: tok})
		}
		return recipients, nil
	}

	owners, err := r.owners(ctx, job)
	if err != nil {
		return nil, err
	}

	var recipients []notification.Recipient
	seen := make(map[string]struct{})
	for _, owner := range owners {
		enabled, err := r.prefs.NotificationsEnabled(ctx, owner)
		if err != nil {
			// The opt-out read is advisory; a failed lookup must not
			// block delivery.
			r.logger.Warn("preference lookup failed, assuming enabled", "owner", owner, "err", err)
			enabled = true
		}
		if !enabled {
			r.logger.Debug("owner opted out, skipping", "owner", owner)
			continue
		}

		tokens, err := r.tokens.ListTokens(ctx, owner)
		if err != nil {
			return nil, fmt.Errorf("listing tokens for %s: %w", owner, err)
		}
		for _, tok := range tokens {
			if tok == "" {
				continue
			}
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			recipients = append(recipients, notification.Recipient{Token: tok, OwnerID: owner})
		}
	}
	return recipients, nil
}

// owners resolves the job's addressing mode to a deduplicated owner
// list, preserving first-seen order.
func (r *Resolver) owners(ctx context.Context, job *notification.Job) ([]string, error) {
	var ids []string
	switch job.Kind {
	case notification.KindUser:
		ids = []string{job.Recipient}
	case notification.KindUserList:
		ids = job.Recipients
	case notification.KindEvent:
		audience, err := r.roster.Audience(ctx, job.EventID)
		if err != nil {
			return nil, fmt.Errorf("reading roster for event %s: %w", job.EventID, err)
		}
		ids = audience
	case notification.KindFeedback:
		admins, err := r.admins.ListAdmins(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing admins: %w", err)
		}
		ids = admins
	case notification.KindGlobal:
		owners, err := r.tokens.ListOwners(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing token owners: %w", err)
		}
		ids = owners
	}

	deduped := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped, nil
}
