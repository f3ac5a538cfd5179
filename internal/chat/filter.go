package chat

import (
	"net/url"
	"strconv"
	"strings"

	"smartsender/internal/apperr"
)

const MaxPageSize = 100

// Filter narrows a conversation list. Limit <= 0 returns everything after
// Offset; larger limits are capped at MaxPageSize.
type Filter struct {
	Query      string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// ParseFilter reads q, unread, limit and offset from a query string.
func ParseFilter(v url.Values) (Filter, error) {
	f := Filter{Query: strings.TrimSpace(v.Get("q"))}
	var err error
	if s := v.Get("unread"); s != "" {
		if f.UnreadOnly, err = strconv.ParseBool(s); err != nil {
			return Filter{}, apperr.Validation("unread must be a boolean")
		}
	}
	if s := v.Get("limit"); s != "" {
		if f.Limit, err = strconv.Atoi(s); err != nil {
			return Filter{}, apperr.Validation("limit must be an integer")
		}
	}
	if s := v.Get("offset"); s != "" {
		if f.Offset, err = strconv.Atoi(s); err != nil || f.Offset < 0 {
			return Filter{}, apperr.Validation("offset must be a non-negative integer")
		}
	}
	return f, nil
}

func (f Filter) limit() int {
	if f.Limit > MaxPageSize {
		return MaxPageSize
	}
	return f.Limit
}

// Apply filters already-sorted items and cuts the requested page.
func (f Filter) Apply(items []ConversationListItem) Page {
	kept := items
	if f.UnreadOnly {
		kept = make([]ConversationListItem, 0, len(items))
		for _, it := range items {
			if it.UnreadCount > 0 {
				kept = append(kept, it)
			}
		}
	}

	page := Page{Total: len(kept), Limit: f.limit(), Offset: f.Offset}
	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > len(kept) {
		start = len(kept)
	}
	end := len(kept)
	if l := f.limit(); l > 0 && start+l < end {
		end = start + l
	}
	page.Items = append([]ConversationListItem{}, kept[start:end]...)
	return page
}
