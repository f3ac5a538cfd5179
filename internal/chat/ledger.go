package chat

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartsender/internal/store"
)

// Ledger owns the message timeline of every conversation.
type Ledger struct {
	conversations *store.Collection[Conversation]
	messages      *store.Collection[Message]
	log           *zap.Logger
	now           func() time.Time
}

func NewLedger(conversations *store.Collection[Conversation], messages *store.Collection[Message], log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		conversations: conversations,
		messages:      messages,
		log:           log.Named("ledger"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

// List returns the conversation's messages oldest first.
func (l *Ledger) List(ctx context.Context, conversationID string) []Message {
	return byConversation(l.messages.Load(ctx), conversationID)
}

func byConversation(all []Message, conversationID string) []Message {
	out := []Message{}
	for _, m := range all {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out
}

// Append stores a new message and moves the owning conversation's
// last message, updated time and unread count forward. Only a failure to
// store the message is returned: for an unknown conversation, or when the
// conversation write fails, the message stays stored and the update is
// skipped with a warning.
func (l *Ledger) Append(ctx context.Context, conversationID, senderID, senderName, content string, media []MessageMedia) (*Message, error) {
	msg := Message{
		ID:             newID("msg"),
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderName:     senderName,
		Content:        content,
		SentAt:         l.now(),
	}
	if len(media) > 0 {
		msg.Media = make([]MessageMedia, len(media))
		copy(msg.Media, media)
		for i := range msg.Media {
			if msg.Media[i].ID == "" {
				msg.Media[i].ID = newID("media")
			}
		}
	}

	err := l.messages.Update(ctx, func(items []Message) ([]Message, error) {
		return append(items, msg), nil
	})
	if err != nil {
		return nil, err
	}

	found := false
	err = l.conversations.Update(ctx, func(items []Conversation) ([]Conversation, error) {
		for i := range items {
			if items[i].ID == conversationID {
				last := msg
				items[i].LastMessage = &last
				items[i].UpdatedAt = msg.SentAt
				items[i].UnreadCount++
				found = true
				break
			}
		}
		return items, nil
	})
	if err != nil {
		// The message is stored; failing here would invite a duplicate retry.
		l.log.Warn("conversation not updated after append",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return &msg, nil
	}
	if !found {
		l.log.Warn("message appended to unknown conversation",
			zap.String("conversation_id", conversationID),
			zap.String("message_id", msg.ID),
		)
	}
	return &msg, nil
}

// MarkRead stamps every unread message not sent by viewerID and resets the
// conversation's unread count. It returns how many messages it stamped;
// calling it again returns 0 and changes nothing.
func (l *Ledger) MarkRead(ctx context.Context, conversationID, viewerID string) (int, error) {
	now := l.now()
	marked := 0
	err := l.messages.Update(ctx, func(items []Message) ([]Message, error) {
		for i := range items {
			m := &items[i]
			if m.ConversationID == conversationID && m.SenderID != viewerID && m.ReadAt == nil {
				at := now
				m.ReadAt = &at
				marked++
			}
		}
		return items, nil
	})
	if err != nil {
		return 0, err
	}

	err = l.conversations.Update(ctx, func(items []Conversation) ([]Conversation, error) {
		for i := range items {
			c := &items[i]
			if c.ID != conversationID {
				continue
			}
			c.UnreadCount = 0
			if c.LastMessage != nil && c.LastMessage.SenderID != viewerID && c.LastMessage.ReadAt == nil {
				at := now
				c.LastMessage.ReadAt = &at
			}
		}
		return items, nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}
