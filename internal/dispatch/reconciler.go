package dispatch

import (
	"context"
	"log/slog"

	"github.com/floatit/go-push-service/pkg/dispatch"
	"github.com/floatit/go-push-service/pkg/notification"
)

// Tally aggregates per-token outcomes for job diagnostics.
type Tally struct {
	Success int
	Failure int
	Removed int
}

// Reconciler inspects per-token delivery outcomes and prunes tokens the
// gateway has confirmed permanently invalid.
type Reconciler struct {
	tokens dispatch.TokenStore
	logger *slog.Logger
}

func NewReconciler(tokens dispatch.TokenStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		tokens: tokens,
		logger: logger.With("component", "Reconciler"),
	}
}

// Reconcile deletes the token of every permanently-invalid outcome that
// has a store handle. Deletion is best-effort cleanup: failures are
// logged and never escalate to the job outcome. Transient and unknown
// failures count as failures but trigger no deletion.
func (r *Reconciler) Reconcile(ctx context.Context, recipients []notification.Recipient, outcomes []notification.DeliveryOutcome) Tally {
	byToken := make(map[string]notification.Recipient, len(recipients))
	for _, rec := range recipients {
		byToken[rec.Token] = rec
	}

	var tally Tally
	for _, out := range outcomes {
		if out.Success {
			tally.Success++
			continue
		}
		tally.Failure++

		if !out.Permanent() {
			continue
		}
		rec, known := byToken[out.Token]
		if !known || !rec.Deletable() {
			continue
		}
		if err := r.tokens.DeleteToken(ctx, rec.OwnerID, rec.Token); err != nil {
			r.logger.Warn("failed to delete invalid token", "owner", rec.OwnerID, "err", err)
			continue
		}
		r.logger.Info("removed invalid token", "owner", rec.OwnerID, "kind", out.Kind)
		tally.Removed++
	}
	return tally
}
