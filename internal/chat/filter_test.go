package chat

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartsender/internal/apperr"
)

func items(n int) []ConversationListItem {
	out := make([]ConversationListItem, n)
	for i := range out {
		out[i] = ConversationListItem{ID: fmt.Sprintf("conv-%03d", i), UnreadCount: i % 2}
	}
	return out
}

func ids(page Page) []string {
	out := []string{}
	for _, it := range page.Items {
		out = append(out, it.ID)
	}
	return out
}

func TestFilterApply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		in     int
		want   []string
		total  int
	}{
		{"unbounded", Filter{}, 3, []string{"conv-000", "conv-001", "conv-002"}, 3},
		{"limit", Filter{Limit: 2}, 5, []string{"conv-000", "conv-001"}, 5},
		{"offset", Filter{Offset: 3}, 5, []string{"conv-003", "conv-004"}, 5},
		{"limit and offset", Filter{Limit: 1, Offset: 2}, 5, []string{"conv-002"}, 5},
		{"offset past end", Filter{Offset: 10}, 3, []string{}, 3},
		{"unread only", Filter{UnreadOnly: true}, 5, []string{"conv-001", "conv-003"}, 2},
		{"unread with limit", Filter{UnreadOnly: true, Limit: 1, Offset: 1}, 5, []string{"conv-003"}, 2},
		{"empty", Filter{Limit: 5}, 0, []string{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := tt.filter.Apply(items(tt.in))
			assert.Equal(t, tt.want, ids(page))
			assert.Equal(t, tt.total, page.Total)
			assert.NotNil(t, page.Items)
		})
	}
}

func TestFilterCapsLimit(t *testing.T) {
	page := Filter{Limit: 1000}.Apply(items(150))
	assert.Len(t, page.Items, MaxPageSize)
	assert.Equal(t, MaxPageSize, page.Limit)
	assert.Equal(t, 150, page.Total)
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter(url.Values{"q": {"  chioma "}, "unread": {"true"}, "limit": {"20"}, "offset": {"40"}})
	require.NoError(t, err)
	assert.Equal(t, Filter{Query: "chioma", UnreadOnly: true, Limit: 20, Offset: 40}, f)

	f, err = ParseFilter(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, Filter{}, f)

	for _, bad := range []url.Values{
		{"unread": {"maybe"}},
		{"limit": {"ten"}},
		{"offset": {"-1"}},
	} {
		_, err := ParseFilter(bad)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}
