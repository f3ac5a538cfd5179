package chat

import (
	"time"

	"smartsender/internal/staff"
)

// ---------------------------------------------
// 🗄️ Stored models
// ---------------------------------------------

// Conversation is a 1:1 thread. ParticipantIDs always holds two distinct
// ids; their order carries no meaning.
type Conversation struct {
	ID             string        `json:"id"`
	ParticipantIDs []string      `json:"participant_ids"`
	Participants   []staff.Staff `json:"participants"` // copies taken at creation
	LastMessage    *Message      `json:"last_message,omitempty"`
	UnreadCount    int           `json:"unread_count"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	IsArchived     bool          `json:"is_archived"`
}

func (c *Conversation) HasParticipant(id string) bool {
	for _, p := range c.ParticipantIDs {
		if p == id {
			return true
		}
	}
	return false
}

// OtherID returns the participant that is not viewerID.
func (c *Conversation) OtherID(viewerID string) string {
	for _, p := range c.ParticipantIDs {
		if p != viewerID {
			return p
		}
	}
	return ""
}

type MediaType string

const (
	MediaImage    MediaType = "image"
	MediaVideo    MediaType = "video"
	MediaDocument MediaType = "document"
	MediaFile     MediaType = "file"
)

type MessageMedia struct {
	ID        string    `json:"id"`
	Type      MediaType `json:"type"`
	URL       string    `json:"url"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mime_type"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Duration  float64   `json:"duration,omitempty"`
}

type Message struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	SenderName     string         `json:"sender_name"` // 🟢 Denormalized for UI speed
	SenderAvatar   string         `json:"sender_avatar,omitempty"`
	Content        string         `json:"content"`
	Media          []MessageMedia `json:"media,omitempty"`
	SentAt         time.Time      `json:"sent_at"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
	IsEdited       bool           `json:"is_edited"`
	EditedAt       *time.Time     `json:"edited_at,omitempty"`
}

// ---------------------------------------------
// 🪟 Projections
// ---------------------------------------------

// ConversationListItem is a Conversation as one viewer sees it.
type ConversationListItem struct {
	ID                 string      `json:"id"`
	ParticipantIDs     []string    `json:"participant_ids"`
	OtherParticipant   staff.Staff `json:"other_participant"`
	LastMessage        *Message    `json:"last_message,omitempty"`
	UnreadCount        int         `json:"unread_count"`
	LastMessagePreview string      `json:"last_message_preview"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	IsArchived         bool        `json:"is_archived"`
	IsOnline           bool        `json:"is_online"`
}

// Page is a filtered, paginated slice of a conversation list.
type Page struct {
	Items  []ConversationListItem `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

// ---------------------------------------------
// 📨 Requests
// ---------------------------------------------

type StartConversationRequest struct {
	TargetID string `json:"target_id" validate:"required"`
}

type SendMessageRequest struct {
	ConversationID string         `json:"conversation_id"`
	Content        string         `json:"content"`
	Media          []MessageMedia `json:"media,omitempty"`
}

// ---------------------------------------------
// ⚡ Realtime
// ---------------------------------------------

type EventType string

const (
	EventMessage       EventType = "message"
	EventRead          EventType = "read"
	EventConversations EventType = "conversations"
	EventError         EventType = "error"
)

// Event is what the hub fans out. Recipients limits delivery to the
// clients of those staff members.
type Event struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Recipients     []string  `json:"recipients,omitempty"`
	Message        *Message  `json:"message,omitempty"`
	ReaderID       string    `json:"reader_id,omitempty"`
	ReadCount      int       `json:"read_count,omitempty"`
	Data           any       `json:"data,omitempty"`
	Error          string    `json:"error,omitempty"`
	At             time.Time `json:"at"`
}

// WSMessage is the frame the frontend sends over the socket.
type WSMessage struct {
	Type           EventType      `json:"type"`
	ConversationID string         `json:"conversation_id"`
	Content        string         `json:"content"`
	Media          []MessageMedia `json:"media,omitempty"`
}
