package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/floatit/go-push-service/pkg/notification"
)

const jobsCollection = "notifications"

// JobStore persists notification jobs in the notifications collection.
type JobStore struct {
	client *firestore.Client
}

func NewJobStore(client *firestore.Client) *JobStore {
	return &JobStore{client: client}
}

// ListPending returns up to limit jobs still awaiting delivery. Only
// pending jobs are ever selected, which is what keeps reprocessing of a
// terminal job impossible.
func (s *JobStore) ListPending(ctx context.Context, limit int) ([]*notification.Job, error) {
	iter := s.client.Collection(jobsCollection).
		Where("status", "==", string(notification.StatusPending)).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var jobs []*notification.Job
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing pending jobs: %w", err)
		}
		job, err := jobFromDoc(doc)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Create persists a new pending job under a fresh document id and
// returns that id.
func (s *JobStore) Create(ctx context.Context, job *notification.Job) (string, error) {
	id := uuid.NewString()
	job.Status = notification.StatusPending
	job.CreatedAt = time.Now().UTC()
	if _, err := s.client.Collection(jobsCollection).Doc(id).Set(ctx, job); err != nil {
		return "", fmt.Errorf("creating job: %w", err)
	}
	job.ID = id
	return id, nil
}

// GetByID fetches a single job document.
func (s *JobStore) GetByID(ctx context.Context, id string) (*notification.Job, error) {
	doc, err := s.client.Collection(jobsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching job %s: %w", id, err)
	}
	return jobFromDoc(doc)
}

// UpdateTerminal writes the terminal status and diagnostics as one
// atomic update, so a crash can never leave a job half-transitioned.
func (s *JobStore) UpdateTerminal(ctx context.Context, id string, status notification.Status, diag notification.Diagnostics) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "tokensCount", Value: diag.TokensCount},
		{Path: "successCount", Value: diag.SuccessCount},
		{Path: "failureCount", Value: diag.FailureCount},
		{Path: "invalidTokensRemoved", Value: diag.InvalidTokensRemoved},
		{Path: "lastAttemptAt", Value: firestore.ServerTimestamp},
	}
	switch status {
	case notification.StatusSent:
		updates = append(updates, firestore.Update{Path: "sentAt", Value: firestore.ServerTimestamp})
	case notification.StatusFailed:
		updates = append(updates,
			firestore.Update{Path: "failedAt", Value: firestore.ServerTimestamp},
			firestore.Update{Path: "error", Value: diag.Error},
		)
	}

	_, err := s.client.Collection(jobsCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		return fmt.Errorf("updating job %s to %s: %w", id, status, err)
	}
	return nil
}

func jobFromDoc(doc *firestore.DocumentSnapshot) (*notification.Job, error) {
	var job notification.Job
	if err := doc.DataTo(&job); err != nil {
		return nil, fmt.Errorf("decoding job %s: %w", doc.Ref.ID, err)
	}
	job.ID = doc.Ref.ID
	return &job, nil
}
