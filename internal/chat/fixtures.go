package chat

import (
	"time"

	"smartsender/internal/staff"
)

// SeedConversations and SeedMessages are written on first access of an empty
// store: one thread between staff-001 and staff-003 with a single message
// from staff-003 still unread.
func SeedConversations() []Conversation {
	fx := staff.DefaultFixtures()
	var a, b staff.Staff
	for _, s := range fx.Staff {
		switch s.ID {
		case "staff-001":
			a = s
		case "staff-003":
			b = s
		}
	}
	a.Password, b.Password = "", ""

	msgs := SeedMessages()
	last := msgs[len(msgs)-1]
	return []Conversation{{
		ID:             "conv-001",
		ParticipantIDs: []string{"staff-001", "staff-003"},
		Participants:   []staff.Staff{a, b},
		LastMessage:    &last,
		UnreadCount:    1,
		CreatedAt:      seedTime("2025-01-10T09:00:00Z"),
		UpdatedAt:      last.SentAt,
	}}
}

func SeedMessages() []Message {
	readAt := seedTime("2025-01-10T09:20:00Z")
	return []Message{
		{
			ID:             "msg-001",
			ConversationID: "conv-001",
			SenderID:       "staff-001",
			SenderName:     "Adebayo Johnson",
			Content:        "Good morning Emeka, did you get the curriculum draft?",
			SentAt:         seedTime("2025-01-10T09:05:00Z"),
			ReadAt:         &readAt,
		},
		{
			ID:             "msg-002",
			ConversationID: "conv-001",
			SenderID:       "staff-003",
			SenderName:     "Emeka Nwankwo",
			Content:        "Yes, reviewing it now. I'll send comments by Friday.",
			SentAt:         seedTime("2025-01-10T09:30:00Z"),
		},
	}
}

func seedTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
