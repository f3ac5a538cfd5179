package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartsender/internal/apperr"
	"smartsender/internal/metrics"
)

func newTestService(t *testing.T, opts ...Option) (*Service, *recorder) {
	t.Helper()
	f := newFixture(t, nil)
	rec := &recorder{}
	opts = append([]Option{WithNotifier(rec), WithMetrics(metrics.New())}, opts...)
	return NewService(f.store, f.staff, opts...), rec
}

// Two staff without a prior conversation start one, exchange a message and
// the recipient reads it.
func TestFirstConversationScenario(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	conv, err := svc.StartConversation(ctx, "staff-001", "staff-002")
	require.NoError(t, err)
	assert.Zero(t, conv.UnreadCount)
	assert.Equal(t, []string{"staff-001", "staff-002"}, conv.ParticipantIDs)

	_, err = svc.SendMessage(ctx, "staff-001", SendMessageRequest{ConversationID: conv.ID, Content: "Hello"})
	require.NoError(t, err)

	msgs, err := svc.Messages(ctx, "staff-001", conv.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, "staff-001", msgs[0].SenderID)
	assert.Equal(t, "Adebayo Johnson", msgs[0].SenderName)
	assert.Nil(t, msgs[0].ReadAt)

	n, err := svc.MarkRead(ctx, "staff-002", conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	msgs, err = svc.Messages(ctx, "staff-002", conv.ID)
	require.NoError(t, err)
	require.NotNil(t, msgs[0].ReadAt)

	item, err := svc.Conversation(ctx, "staff-002", conv.ID)
	require.NoError(t, err)
	assert.Zero(t, item.UnreadCount)
	assert.Equal(t, "Hello", item.LastMessagePreview)

	stored, err := svc.lifecycle.Find(ctx, conv.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.UnreadCount)

	events := rec.all()
	require.Len(t, events, 2)
	assert.Equal(t, EventMessage, events[0].Type)
	assert.ElementsMatch(t, []string{"staff-001", "staff-002"}, events[0].Recipients)
	assert.Equal(t, EventRead, events[1].Type)
	assert.Equal(t, "staff-002", events[1].ReaderID)
	assert.Equal(t, 1, events[1].ReadCount)
}

func TestSeededConversationIsVisible(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	page, err := svc.Conversations(ctx, "staff-003", Filter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "conv-001", page.Items[0].ID)
	assert.Equal(t, "staff-001", page.Items[0].OtherParticipant.ID)

	page, err = svc.Conversations(ctx, "staff-001", Filter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Items[0].UnreadCount)

	page, err = svc.Conversations(ctx, "staff-002", Filter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestSearchConversations(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	got, err := svc.SearchConversations(ctx, "staff-001", "curriculum")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = svc.SearchConversations(ctx, "staff-001", "nothing matches this")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = svc.SearchConversations(ctx, "staff-001", "  ")
	require.NoError(t, err)
	assert.Len(t, got, 1, "blank query lists everything")
}

func TestParticipantChecks(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t)

	_, err := svc.Messages(ctx, "staff-002", "conv-001")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.SendMessage(ctx, "staff-002", SendMessageRequest{ConversationID: "conv-001", Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.MarkRead(ctx, "staff-002", "conv-001")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Conversation(ctx, "staff-002", "conv-001")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.SendMessage(ctx, "staff-001", SendMessageRequest{ConversationID: "conv-missing", Content: "hi"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = svc.Messages(ctx, "staff-001", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	assert.Empty(t, rec.all())
	msgs, err := svc.Messages(ctx, "staff-001", "conv-001")
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "rejected sends stored nothing")
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	tests := []struct {
		name string
		req  SendMessageRequest
		msg  string
	}{
		{"empty", SendMessageRequest{Content: "   "}, "Message must have content or media"},
		{"too long", SendMessageRequest{Content: strings.Repeat("a", MaxContentLength+1)}, "Message exceeds 5000 characters"},
		{"nameless media", SendMessageRequest{Media: []MessageMedia{{Size: 1}}}, "Media name is required"},
		{"oversized media", SendMessageRequest{Media: []MessageMedia{{Name: "x.mp4", Size: 200 << 20}}}, "File size exceeds 100MB limit"},
		{"bad type", SendMessageRequest{Media: []MessageMedia{{Name: "x.mp4", Type: "hologram"}}}, "Unknown media type hologram"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.ConversationID = "conv-001"
			_, err := svc.SendMessage(ctx, "staff-001", tt.req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.EqualError(t, err, tt.msg)
		})
	}

	_, err := svc.SendMessage(ctx, "staff-001", SendMessageRequest{ConversationID: "conv-001", Content: strings.Repeat("é", MaxContentLength)})
	assert.NoError(t, err, "limit counts characters, not bytes")
}

func TestSendMediaOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	msg, err := svc.SendMessage(ctx, "staff-003", SendMessageRequest{
		ConversationID: "conv-001",
		Media: []MessageMedia{
			{Name: "site.JPG", Size: 2048, URL: "blob:1"},
			{Name: "lecture.mp4", Size: 4096},
			{Name: "notes.docx", Size: 10},
			{Name: "song.mp3", Size: 10},
			{Name: "video.mov", Type: MediaVideo, Size: 10},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
	require.Len(t, msg.Media, 5)
	assert.Equal(t, MediaImage, msg.Media[0].Type)
	assert.Equal(t, MediaVideo, msg.Media[1].Type)
	assert.Equal(t, MediaDocument, msg.Media[2].Type)
	assert.Equal(t, MediaFile, msg.Media[3].Type)
	assert.Equal(t, MediaVideo, msg.Media[4].Type)

	item, err := svc.Conversation(ctx, "staff-001", "conv-001")
	require.NoError(t, err)
	assert.Equal(t, "📎 site.JPG", item.LastMessagePreview)
	assert.Equal(t, 2, item.UnreadCount)
}

func TestStartConversationErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.StartConversation(ctx, "staff-001", "staff-001")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.StartConversation(ctx, "staff-001", "staff-777")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	conv, err := svc.StartConversation(ctx, "staff-003", "staff-001")
	require.NoError(t, err)
	assert.Equal(t, "conv-001", conv.ID, "seeded pair is reused")
}

func TestLatencyHonoursCancellation(t *testing.T) {
	svc, rec := newTestService(t, WithLatency(Latency{Send: time.Minute, List: 20 * time.Millisecond}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.SendMessage(ctx, "staff-001", SendMessageRequest{ConversationID: "conv-001", Content: "late"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, rec.all())

	msgs, err := svc.Messages(context.Background(), "staff-001", "conv-001")
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "cancelled send wrote nothing")

	start := time.Now()
	_, err = svc.Conversations(context.Background(), "staff-001", Filter{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestMediaTypeFor(t *testing.T) {
	assert.Equal(t, MediaImage, MediaTypeFor("a.webp"))
	assert.Equal(t, MediaVideo, MediaTypeFor("a.MP4"))
	assert.Equal(t, MediaDocument, MediaTypeFor("a.pptx"))
	assert.Equal(t, MediaDocument, MediaTypeFor("unknown.xyz"))
	assert.Equal(t, MediaFile, MediaTypeFor("a.zip"))
}

func TestWithoutSeed(t *testing.T) {
	svc, _ := newTestService(t, WithSeed(false))
	page, err := svc.Conversations(context.Background(), "staff-001", Filter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Zero(t, page.Total)
}
