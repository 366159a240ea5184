// Package firestore implements the service's storage contracts on
// Google Cloud Firestore.
package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

const (
	tokensCollection = "fcm_tokens"
	tokensSubcoll    = "tokens"
)

// TokenStore reads and prunes per-owner device tokens laid out as
// fcm_tokens/{owner}/tokens/{tokenKey}.
type TokenStore struct {
	client *firestore.Client
}

func NewTokenStore(client *firestore.Client) *TokenStore {
	return &TokenStore{client: client}
}

// tokenRecord is the internal DB representation of one device token.
type tokenRecord struct {
	Token     string    `firestore:"token"`
	UpdatedAt time.Time `firestore:"updated_at,omitempty"`
}

// ListTokens returns every token registered for the owner.
func (s *TokenStore) ListTokens(ctx context.Context, ownerID string) ([]string, error) {
	iter := s.tokensColl(ownerID).Documents(ctx)
	defer iter.Stop()

	var tokens []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating tokens for %s: %w", ownerID, err)
		}
		var rec tokenRecord
		if err := doc.DataTo(&rec); err != nil {
			// Corrupt rows are skipped rather than failing the fan-out.
			continue
		}
		if rec.Token != "" {
			tokens = append(tokens, rec.Token)
		}
	}
	return tokens, nil
}

// DeleteToken removes one token document. Firestore deletes are
// idempotent, so an already-pruned token is not an error.
func (s *TokenStore) DeleteToken(ctx context.Context, ownerID, token string) error {
	_, err := s.tokensColl(ownerID).Doc(tokenKey(token)).Delete(ctx)
	if err != nil {
		return fmt.Errorf("deleting token for %s: %w", ownerID, err)
	}
	return nil
}

// ListOwners enumerates the owner documents of the token collection.
func (s *TokenStore) ListOwners(ctx context.Context) ([]string, error) {
	iter := s.client.Collection(tokensCollection).Documents(ctx)
	defer iter.Stop()

	var owners []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating token owners: %w", err)
		}
		owners = append(owners, doc.Ref.ID)
	}
	return owners, nil
}

func (s *TokenStore) tokensColl(ownerID string) *firestore.CollectionRef {
	return s.client.Collection(tokensCollection).Doc(ownerID).Collection(tokensSubcoll)
}

// tokenKey derives the document id for a raw token value. Raw tokens
// may contain characters that are illegal in a document path, so the
// key is the hex sha256 of the value: storage-safe, deterministic and
// collision-resistant.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
