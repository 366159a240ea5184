package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/floatit/go-push-service/internal/dispatch"
	"github.com/floatit/go-push-service/pkg/notification"
)

func TestReconciler_Reconcile(t *testing.T) {
	ctx := context.Background()

	recipients := []notification.Recipient{
		{Token: "tA", OwnerID: "u1"},
		{Token: "tB", OwnerID: "u1"},
		{Token: "tC", OwnerID: "u2"},
		{Token: "tX"}, // supplied out-of-band, no delete handle
	}

	t.Run("Deletes Only Permanently Invalid Tokens", func(t *testing.T) {
		tokens := new(mockTokenStore)
		tokens.On("DeleteToken", mock.Anything, "u1", "tB").Return(nil)

		r := dispatch.NewReconciler(tokens, newTestLogger())
		tally := r.Reconcile(ctx, recipients, []notification.DeliveryOutcome{
			{Token: "tA", Success: true, Kind: notification.OutcomeOK},
			{Token: "tB", Kind: notification.OutcomeNotRegistered},
			{Token: "tC", Kind: notification.OutcomeTransient},
		})

		assert.Equal(t, 1, tally.Success)
		assert.Equal(t, 2, tally.Failure)
		assert.Equal(t, 1, tally.Removed)
		tokens.AssertExpectations(t)
		tokens.AssertNotCalled(t, "DeleteToken", mock.Anything, "u2", "tC")
	})

	t.Run("Invalid Token Without Handle Is Not Deleted", func(t *testing.T) {
		tokens := new(mockTokenStore)

		r := dispatch.NewReconciler(tokens, newTestLogger())
		tally := r.Reconcile(ctx, recipients, []notification.DeliveryOutcome{
			{Token: "tX", Kind: notification.OutcomeInvalidToken},
		})

		assert.Equal(t, 1, tally.Failure)
		assert.Equal(t, 0, tally.Removed)
		tokens.AssertNotCalled(t, "DeleteToken")
	})

	t.Run("Deletion Failure Is Swallowed", func(t *testing.T) {
		tokens := new(mockTokenStore)
		tokens.On("DeleteToken", mock.Anything, "u1", "tB").Return(errors.New("store down"))

		r := dispatch.NewReconciler(tokens, newTestLogger())
		tally := r.Reconcile(ctx, recipients, []notification.DeliveryOutcome{
			{Token: "tB", Kind: notification.OutcomeInvalidToken},
		})

		// Cleanup is best-effort: the failed delete is not counted and
		// not escalated.
		assert.Equal(t, 1, tally.Failure)
		assert.Equal(t, 0, tally.Removed)
	})

	t.Run("Unknown And Transient Kinds Never Delete", func(t *testing.T) {
		tokens := new(mockTokenStore)

		r := dispatch.NewReconciler(tokens, newTestLogger())
		r.Reconcile(ctx, recipients, []notification.DeliveryOutcome{
			{Token: "tA", Kind: notification.OutcomeTransient},
			{Token: "tB", Kind: notification.OutcomeUnknown},
		})

		tokens.AssertNotCalled(t, "DeleteToken")
	})
}
