package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	eventsCollection = "events"
	usersCollection  = "users"
	prefsCollection  = "public_users"
)

// EventRoster resolves an event to the union of its attendee and
// waiting lists.
type EventRoster struct {
	client *firestore.Client
}

func NewEventRoster(client *firestore.Client) *EventRoster {
	return &EventRoster{client: client}
}

type eventRecord struct {
	Attendees   []string `firestore:"attendees"`
	WaitingList []string `firestore:"waitingList"`
}

// Audience returns attendees plus waiting list, deduplicated. An
// unknown event id yields an empty audience: the job still completes
// as sent with zero counts.
func (r *EventRoster) Audience(ctx context.Context, eventID string) ([]string, error) {
	doc, err := r.client.Collection(eventsCollection).Doc(eventID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching event %s: %w", eventID, err)
	}

	var rec eventRecord
	if err := doc.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("decoding event %s: %w", eventID, err)
	}

	audience := make([]string, 0, len(rec.Attendees)+len(rec.WaitingList))
	seen := make(map[string]struct{})
	for _, id := range append(rec.Attendees, rec.WaitingList...) {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		audience = append(audience, id)
	}
	return audience, nil
}

// AdminIndex lists users carrying the admin flag.
type AdminIndex struct {
	client *firestore.Client
}

func NewAdminIndex(client *firestore.Client) *AdminIndex {
	return &AdminIndex{client: client}
}

func (a *AdminIndex) ListAdmins(ctx context.Context) ([]string, error) {
	iter := a.client.Collection(usersCollection).Where("admin", "==", true).Documents(ctx)
	defer iter.Stop()

	var admins []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing admins: %w", err)
		}
		admins = append(admins, doc.Ref.ID)
	}
	return admins, nil
}

// Preferences reads the per-user opt-out flag.
type Preferences struct {
	client *firestore.Client
}

func NewPreferences(client *firestore.Client) *Preferences {
	return &Preferences{client: client}
}

type prefsRecord struct {
	NotificationsEnabled *bool `firestore:"notificationsEnabled"`
}

// NotificationsEnabled reports whether the owner accepts pushes. A
// missing profile or an unset flag means enabled.
func (p *Preferences) NotificationsEnabled(ctx context.Context, ownerID string) (bool, error) {
	doc, err := p.client.Collection(prefsCollection).Doc(ownerID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("fetching preferences for %s: %w", ownerID, err)
	}

	var rec prefsRecord
	if err := doc.DataTo(&rec); err != nil {
		return false, fmt.Errorf("decoding preferences for %s: %w", ownerID, err)
	}
	if rec.NotificationsEnabled == nil {
		return true, nil
	}
	return *rec.NotificationsEnabled, nil
}
