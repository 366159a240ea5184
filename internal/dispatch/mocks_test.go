package dispatch_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/floatit/go-push-service/pkg/notification"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) ListTokens(ctx context.Context, ownerID string) ([]string, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockTokenStore) DeleteToken(ctx context.Context, ownerID, token string) error {
	return m.Called(ctx, ownerID, token).Error(0)
}

func (m *mockTokenStore) ListOwners(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockJobStore struct {
	mock.Mock
}

func (m *mockJobStore) ListPending(ctx context.Context, limit int) ([]*notification.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Job), args.Error(1)
}

func (m *mockJobStore) GetByID(ctx context.Context, id string) (*notification.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Job), args.Error(1)
}

func (m *mockJobStore) UpdateTerminal(ctx context.Context, id string, status notification.Status, diag notification.Diagnostics) error {
	return m.Called(ctx, id, status, diag).Error(0)
}

type mockRoster struct {
	mock.Mock
}

func (m *mockRoster) Audience(ctx context.Context, eventID string) ([]string, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockAdminIndex struct {
	mock.Mock
}

func (m *mockAdminIndex) ListAdmins(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// mockPrefs defaults every owner to enabled unless a specific
// expectation is registered.
type mockPrefs struct {
	disabled map[string]bool
}

func (m *mockPrefs) NotificationsEnabled(_ context.Context, ownerID string) (bool, error) {
	if m.disabled[ownerID] {
		return false, nil
	}
	return true, nil
}

// okOutcomes builds an all-success outcome slice for a token batch.
func okOutcomes(tokens []string) []notification.DeliveryOutcome {
	outcomes := make([]notification.DeliveryOutcome, len(tokens))
	for i, tok := range tokens {
		outcomes[i] = notification.DeliveryOutcome{Token: tok, Success: true, Kind: notification.OutcomeOK}
	}
	return outcomes
}
