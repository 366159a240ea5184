package fcm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/floatit/go-push-service/internal/platform/fcm"
	"github.com/floatit/go-push-service/pkg/notification"
)

// MockClient satisfies the MessagingClient interface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) SendEachForMulticast(ctx context.Context, msg *messaging.MulticastMessage) (*messaging.BatchResponse, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.BatchResponse), args.Error(1)
}

func (m *MockClient) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGateway_SendBatch(t *testing.T) {
	ctx := context.Background()
	payload := notification.Payload{Title: "Test", Data: map[string]string{"id": "1"}}

	t.Run("All Success", func(t *testing.T) {
		mockClient := new(MockClient)
		gw := fcm.NewGateway(mockClient, 0, newTestLogger())
		tokens := []string{"token-1", "token-2"}

		mockResponse := &messaging.BatchResponse{
			SuccessCount: 2,
			Responses: []*messaging.SendResponse{
				{Success: true, MessageID: "msg-1"},
				{Success: true, MessageID: "msg-2"},
			},
		}
		mockClient.On("SendEachForMulticast", mock.Anything, mock.Anything).Return(mockResponse, nil)

		outcomes, err := gw.SendBatch(ctx, tokens, payload)

		require.NoError(t, err)
		require.Len(t, outcomes, 2)
		assert.Equal(t, "token-1", outcomes[0].Token)
		assert.True(t, outcomes[0].Success)
		assert.Equal(t, notification.OutcomeOK, outcomes[0].Kind)
		assert.True(t, outcomes[1].Success)
		mockClient.AssertExpectations(t)
	})

	t.Run("Per-Token Failure Preserves Order", func(t *testing.T) {
		mockClient := new(MockClient)
		gw := fcm.NewGateway(mockClient, 0, newTestLogger())
		tokens := []string{"token-good", "token-bad"}

		mockResponse := &messaging.BatchResponse{
			SuccessCount: 1,
			FailureCount: 1,
			Responses: []*messaging.SendResponse{
				{Success: true, MessageID: "msg-1"},
				{Success: false, Error: errors.New("something opaque")},
			},
		}
		mockClient.On("SendEachForMulticast", mock.Anything, mock.Anything).Return(mockResponse, nil)

		outcomes, err := gw.SendBatch(ctx, tokens, payload)

		require.NoError(t, err)
		require.Len(t, outcomes, 2)
		assert.Equal(t, "token-bad", outcomes[1].Token)
		assert.False(t, outcomes[1].Success)
		// An unrecognised error must never classify as permanent.
		assert.False(t, outcomes[1].Permanent())
	})

	t.Run("Transport Failure", func(t *testing.T) {
		mockClient := new(MockClient)
		gw := fcm.NewGateway(mockClient, 0, newTestLogger())

		mockClient.On("SendEachForMulticast", mock.Anything, mock.Anything).Return(nil, errors.New("network down"))

		outcomes, err := gw.SendBatch(ctx, []string{"token-1"}, payload)

		require.Error(t, err)
		assert.Nil(t, outcomes)
		assert.Contains(t, err.Error(), "transport failed")
	})

	t.Run("Oversized Batch Rejected", func(t *testing.T) {
		mockClient := new(MockClient)
		gw := fcm.NewGateway(mockClient, 0, newTestLogger())

		tokens := make([]string, fcm.DefaultBatchLimit+1)
		_, err := gw.SendBatch(ctx, tokens, payload)

		require.Error(t, err)
		mockClient.AssertNotCalled(t, "SendEachForMulticast")
	})

	t.Run("Empty Batch Is A No-Op", func(t *testing.T) {
		mockClient := new(MockClient)
		gw := fcm.NewGateway(mockClient, 0, newTestLogger())

		outcomes, err := gw.SendBatch(ctx, nil, payload)

		require.NoError(t, err)
		assert.Empty(t, outcomes)
		mockClient.AssertNotCalled(t, "SendEachForMulticast")
	})

	// The mapping of the SDK's registration-token error types is covered
	// by integration tests; constructing the SDK's internal error values
	// here would be brittle.
}

func TestGateway_SendTopic(t *testing.T) {
	ctx := context.Background()
	payload := notification.Payload{Title: "Broadcast", Body: "hello"}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(MockClient)
		gw := fcm.NewGateway(mockClient, 0, newTestLogger())

		mockClient.On("Send", mock.Anything, mock.MatchedBy(func(msg *messaging.Message) bool {
			return msg.Topic == "all-users" && msg.Notification.Title == "Broadcast"
		})).Return("projects/p/messages/1", nil)

		err := gw.SendTopic(ctx, "all-users", payload)

		require.NoError(t, err)
		mockClient.AssertExpectations(t)
	})

	t.Run("Failure", func(t *testing.T) {
		mockClient := new(MockClient)
		gw := fcm.NewGateway(mockClient, 0, newTestLogger())

		mockClient.On("Send", mock.Anything, mock.Anything).Return("", errors.New("auth failed"))

		err := gw.SendTopic(ctx, "all-users", payload)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "topic send failed")
	})
}
