package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"smartsender/internal/apperr"
	"smartsender/internal/staff"
	"smartsender/internal/store"
)

// errExisting aborts an Update without writing when the pair already has a
// conversation.
var errExisting = errors.New("conversation exists")

// Lifecycle creates conversations, at most one per unordered pair of staff.
type Lifecycle struct {
	conversations *store.Collection[Conversation]
	staff         StaffDirectory
	log           *zap.Logger
	now           func() time.Time
}

func NewLifecycle(conversations *store.Collection[Conversation], dir StaffDirectory, log *zap.Logger) *Lifecycle {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lifecycle{
		conversations: conversations,
		staff:         dir,
		log:           log.Named("lifecycle"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GetOrCreate returns the conversation between viewerID and otherID,
// creating it when none exists. created reports which happened. The lookup
// and insert run under the store lock, so concurrent callers for the same
// pair all get the same conversation.
func (l *Lifecycle) GetOrCreate(ctx context.Context, viewerID, otherID string) (conv *Conversation, created bool, err error) {
	viewerID, otherID = strings.TrimSpace(viewerID), strings.TrimSpace(otherID)
	if viewerID == "" || otherID == "" {
		return nil, false, apperr.Validation("Both staff ids are required")
	}
	if viewerID == otherID {
		return nil, false, apperr.Validation("Cannot start a conversation with yourself")
	}

	err = l.conversations.Update(ctx, func(items []Conversation) ([]Conversation, error) {
		for i := range items {
			if samePair(items[i].ParticipantIDs, viewerID, otherID) {
				found := items[i]
				conv = &found
				return nil, errExisting
			}
		}

		viewer, verr := l.staff.Get(ctx, viewerID)
		other, oerr := l.staff.Get(ctx, otherID)
		if verr != nil || oerr != nil {
			return nil, apperr.NotFound("Staff members not found")
		}

		now := l.now()
		c := Conversation{
			ID:             newID("conv"),
			ParticipantIDs: []string{viewerID, otherID},
			Participants:   []staff.Staff{*viewer, *other},
			UnreadCount:    0,
			CreatedAt:      now,
			UpdatedAt:      now,
			IsArchived:     false,
		}
		conv = &c
		created = true
		return append(items, c), nil
	})
	if errors.Is(err, errExisting) {
		return conv, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	l.log.Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.Strings("participants", conv.ParticipantIDs),
	)
	return conv, created, nil
}

// Find returns the stored conversation with id.
func (l *Lifecycle) Find(ctx context.Context, id string) (*Conversation, error) {
	for _, c := range l.conversations.Load(ctx) {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, apperr.NotFound("Conversation not found")
}

func samePair(ids []string, a, b string) bool {
	if len(ids) != 2 {
		return false
	}
	return (ids[0] == a && ids[1] == b) || (ids[0] == b && ids[1] == a)
}
