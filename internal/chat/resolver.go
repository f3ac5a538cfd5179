package chat

import (
	"context"
	"sort"
	"strings"

	"github.com/jinzhu/copier"

	"smartsender/internal/staff"
	"smartsender/internal/store"
)

const noMessagesPreview = "No messages yet"

// StaffDirectory resolves staff records by id.
type StaffDirectory interface {
	Get(ctx context.Context, id string) (*staff.Staff, error)
}

// Presence reports whether a staff member currently has a live connection.
type Presence interface {
	IsOnline(staffID string) bool
}

type offline struct{}

func (offline) IsOnline(string) bool { return false }

// Resolver builds the viewer-scoped conversation list.
type Resolver struct {
	conversations *store.Collection[Conversation]
	messages      *store.Collection[Message]
	staff         StaffDirectory
	presence      Presence
}

func NewResolver(conversations *store.Collection[Conversation], messages *store.Collection[Message], dir StaffDirectory, presence Presence) *Resolver {
	if presence == nil {
		presence = offline{}
	}
	return &Resolver{conversations: conversations, messages: messages, staff: dir, presence: presence}
}

// List returns the viewer's conversations, most recently active first.
func (r *Resolver) List(ctx context.Context, viewerID string) []ConversationListItem {
	return r.resolve(ctx, viewerID, nil)
}

// Search keeps the conversations whose other participant's first name, last
// name or email, or any message, contains query (case-insensitive). A blank
// query matches nothing.
func (r *Resolver) Search(ctx context.Context, viewerID, query string) []ConversationListItem {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []ConversationListItem{}
	}
	return r.resolve(ctx, viewerID, func(item *ConversationListItem, msgs []Message) bool {
		if staff.Matches(item.OtherParticipant, q) {
			return true
		}
		for _, m := range msgs {
			if strings.Contains(strings.ToLower(m.Content), q) {
				return true
			}
		}
		return false
	})
}

func (r *Resolver) resolve(ctx context.Context, viewerID string, keep func(*ConversationListItem, []Message) bool) []ConversationListItem {
	all := r.messages.Load(ctx)
	out := []ConversationListItem{}
	for _, conv := range r.conversations.Load(ctx) {
		if !conv.HasParticipant(viewerID) {
			continue
		}
		msgs := byConversation(all, conv.ID)
		item := r.project(ctx, conv, viewerID, msgs)
		if keep != nil && !keep(&item, msgs) {
			continue
		}
		out = append(out, item)
	}
	sortByActivity(out)
	return out
}

func (r *Resolver) project(ctx context.Context, conv Conversation, viewerID string, msgs []Message) ConversationListItem {
	item := listItemFrom(conv)

	otherID := conv.OtherID(viewerID)
	item.OtherParticipant = r.participant(ctx, conv, otherID)
	item.LastMessagePreview = preview(conv.LastMessage)
	item.UnreadCount = unreadFor(msgs, viewerID)
	item.IsOnline = r.presence.IsOnline(otherID)
	return item
}

// listItemFrom copies the stored fields of conv. If copier refuses the pair
// the fields are copied by hand.
func listItemFrom(conv Conversation) ConversationListItem {
	var item ConversationListItem
	if err := copier.Copy(&item, &conv); err == nil {
		return item
	}
	item = ConversationListItem{
		ID:             conv.ID,
		ParticipantIDs: append([]string(nil), conv.ParticipantIDs...),
		UnreadCount:    conv.UnreadCount,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
		IsArchived:     conv.IsArchived,
	}
	if conv.LastMessage != nil {
		last := *conv.LastMessage
		last.Media = append([]MessageMedia(nil), last.Media...)
		item.LastMessage = &last
	}
	return item
}

// participant prefers the live directory record and falls back to the copy
// taken when the conversation was created.
func (r *Resolver) participant(ctx context.Context, conv Conversation, id string) staff.Staff {
	if r.staff != nil {
		if s, err := r.staff.Get(ctx, id); err == nil {
			return *s
		}
	}
	for _, p := range conv.Participants {
		if p.ID == id {
			return p
		}
	}
	return staff.Staff{ID: id}
}

func preview(m *Message) string {
	switch {
	case m == nil:
		return noMessagesPreview
	case len(m.Media) > 0:
		return "📎 " + m.Media[0].Name
	default:
		return m.Content
	}
}

func unreadFor(msgs []Message, viewerID string) int {
	n := 0
	for _, m := range msgs {
		if m.SenderID != viewerID && m.ReadAt == nil {
			n++
		}
	}
	return n
}

func sortByActivity(items []ConversationListItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
}
