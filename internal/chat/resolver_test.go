package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartsender/internal/staff"
)

// seedThreads gives staff-001 three conversations with distinct activity.
func seedThreads(t *testing.T, f *fixture) (withMedia, withText, empty *Conversation) {
	t.Helper()
	ctx := context.Background()
	lc := f.lifecycle()
	l := f.ledger(nil)

	var err error
	empty, _, err = lc.GetOrCreate(ctx, "staff-001", "staff-demo")
	require.NoError(t, err)
	withText, _, err = lc.GetOrCreate(ctx, "staff-002", "staff-001")
	require.NoError(t, err)
	withMedia, _, err = lc.GetOrCreate(ctx, "staff-001", "staff-003")
	require.NoError(t, err)

	_, err = l.Append(ctx, withText.ID, "staff-002", "Chioma Okafor", "Budget review on Tuesday", nil)
	require.NoError(t, err)
	_, err = l.Append(ctx, withText.ID, "staff-002", "Chioma Okafor", "Bring the spreadsheets", nil)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = l.Append(ctx, withMedia.ID, "staff-001", "Adebayo Johnson", "", []MessageMedia{
		{Name: "timetable.pdf", Type: MediaDocument},
		{Name: "photo.png", Type: MediaImage},
	})
	require.NoError(t, err)
	return withMedia, withText, empty
}

func TestListProjection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	withMedia, withText, empty := seedThreads(t, f)

	items := f.resolver(fakePresence{"staff-003": true}).List(ctx, "staff-001")
	require.Len(t, items, 3)

	assert.Equal(t, withMedia.ID, items[0].ID)
	assert.Equal(t, withText.ID, items[1].ID)
	assert.Equal(t, empty.ID, items[2].ID)

	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].UpdatedAt.After(items[i-1].UpdatedAt), "sorted by updated_at descending")
	}
	for _, it := range items {
		assert.Contains(t, it.ParticipantIDs, it.OtherParticipant.ID)
		assert.NotEqual(t, "staff-001", it.OtherParticipant.ID)
		assert.Len(t, it.ParticipantIDs, 2)
	}

	assert.Equal(t, "📎 timetable.pdf", items[0].LastMessagePreview)
	assert.Equal(t, "Bring the spreadsheets", items[1].LastMessagePreview)
	assert.Equal(t, "No messages yet", items[2].LastMessagePreview)

	assert.True(t, items[0].IsOnline)
	assert.False(t, items[1].IsOnline)

	assert.Zero(t, items[0].UnreadCount, "own messages are never unread")
	assert.Equal(t, 2, items[1].UnreadCount)
	assert.Zero(t, items[2].UnreadCount)
}

func TestListUnreadIsPerViewer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	withMedia, _, _ := seedThreads(t, f)

	items := f.resolver(nil).List(ctx, "staff-003")
	require.Len(t, items, 1)
	assert.Equal(t, withMedia.ID, items[0].ID)
	assert.Equal(t, 1, items[0].UnreadCount)
	assert.Equal(t, "staff-001", items[0].OtherParticipant.ID)
	assert.False(t, items[0].IsOnline)
}

func TestListEmptyForStranger(t *testing.T) {
	f := newFixture(t, nil)
	seedThreads(t, f)
	items := f.resolver(nil).List(context.Background(), "staff-404")
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

type renamingDirectory struct {
	renamed map[string]staff.Staff
}

func (d renamingDirectory) Get(_ context.Context, id string) (*staff.Staff, error) {
	if s, ok := d.renamed[id]; ok {
		return &s, nil
	}
	return nil, errors.New("gone")
}

func TestOtherParticipantResolvedAtReadTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, withText, _ := seedThreads(t, f)

	dir := renamingDirectory{renamed: map[string]staff.Staff{
		"staff-002": {ID: "staff-002", FirstName: "Chioma", LastName: "Okafor-Bello", Email: "chioma.okafor@unilag.edu.ng"},
	}}
	r := NewResolver(f.conversations, f.messages, dir, nil)

	items := r.List(ctx, "staff-001")
	byID := map[string]ConversationListItem{}
	for _, it := range items {
		byID[it.ID] = it
	}
	assert.Equal(t, "Okafor-Bello", byID[withText.ID].OtherParticipant.LastName, "live record wins")

	// Unknown to the directory: the copy taken at creation is used.
	for _, it := range items {
		if it.OtherParticipant.ID == "staff-003" {
			assert.Equal(t, "Nwankwo", it.OtherParticipant.LastName)
		}
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	withMedia, withText, empty := seedThreads(t, f)
	r := f.resolver(nil)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"first name", "chioma", []string{withText.ID}},
		{"last name upper case", "NWANKWO", []string{withMedia.ID}},
		{"email", "smartsender.ng", []string{empty.ID}},
		{"message content", "spreadsheets", []string{withText.ID}},
		{"shared domain", "unilag", []string{withText.ID}},
		{"no match", "quantum chromodynamics", nil},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Search(ctx, "staff-001", tt.query)
			require.NotNil(t, got)
			ids := []string{}
			for _, it := range got {
				ids = append(ids, it.ID)
			}
			if tt.want == nil {
				assert.Empty(t, ids)
			} else {
				assert.ElementsMatch(t, tt.want, ids)
			}
		})
	}
}

func TestSearchMatchesAnyMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, withText, _ := seedThreads(t, f)

	got := f.resolver(nil).Search(ctx, "staff-002", "budget REVIEW")
	require.Len(t, got, 1)
	assert.Equal(t, withText.ID, got[0].ID)
	assert.Equal(t, "staff-001", got[0].OtherParticipant.ID)
}

func TestListItemFromCopiesStoredFields(t *testing.T) {
	conv := SeedConversations()[0]
	conv.IsArchived = true

	item := listItemFrom(conv)
	assert.Equal(t, conv.ID, item.ID)
	assert.Equal(t, conv.ParticipantIDs, item.ParticipantIDs)
	assert.Equal(t, conv.UnreadCount, item.UnreadCount)
	assert.Equal(t, conv.CreatedAt, item.CreatedAt)
	assert.Equal(t, conv.UpdatedAt, item.UpdatedAt)
	assert.True(t, item.IsArchived)
	require.NotNil(t, item.LastMessage)
	assert.Equal(t, conv.LastMessage.ID, item.LastMessage.ID)
	assert.Empty(t, item.OtherParticipant.ID, "projection fields are left to the resolver")
	assert.Empty(t, item.LastMessagePreview)
}
