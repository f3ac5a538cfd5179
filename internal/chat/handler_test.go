package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	myMiddleware "smartsender/internal/middleware"
)

// asStaff authenticates requests from the X-Staff header (or the staff
// query parameter for websocket dials).
func asStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Staff")
		if id == "" {
			id = r.URL.Query().Get("staff")
		}
		if id != "" {
			r = r.WithContext(myMiddleware.WithStaff(r.Context(), id, ""))
		}
		next.ServeHTTP(w, r)
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) (http.Handler, *Hub) {
	t.Helper()
	f := newFixture(t, nil)
	hub := NewHub(nil, "", nil, nil)
	svc := NewService(f.store, f.staff, WithPresence(hub), WithNotifier(hub))
	hub.Bind(svc)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	r := chi.NewRouter()
	r.Use(asStaff)
	NewHandler(hub, svc).Routes(r)
	return r, hub
}

func call(t *testing.T, h http.Handler, method, target, staffID, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if staffID != "" {
		req.Header.Set("X-Staff", staffID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestConversationEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	code, env := call(t, r, http.MethodPost, "/api/conversations", "staff-001", `{"target_id":"staff-002"}`)
	require.Equal(t, http.StatusOK, code, env.Error)
	var conv Conversation
	require.NoError(t, json.Unmarshal(env.Data, &conv))
	assert.Equal(t, []string{"staff-001", "staff-002"}, conv.ParticipantIDs)

	code, env = call(t, r, http.MethodPost, "/api/conversations/"+conv.ID+"/messages", "staff-001", `{"content":"Hello"}`)
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = call(t, r, http.MethodGet, "/api/conversations?unread=true", "staff-002", "")
	require.Equal(t, http.StatusOK, code)
	var page Page
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, conv.ID, page.Items[0].ID)
	assert.Equal(t, "Hello", page.Items[0].LastMessagePreview)
	assert.Equal(t, 1, page.Items[0].UnreadCount)

	code, env = call(t, r, http.MethodPost, "/api/conversations/"+conv.ID+"/read", "staff-002", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"marked":1}`, string(env.Data))

	code, env = call(t, r, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", "staff-002", "")
	require.Equal(t, http.StatusOK, code)
	var msgs []Message
	require.NoError(t, json.Unmarshal(env.Data, &msgs))
	require.Len(t, msgs, 1)
	assert.NotNil(t, msgs[0].ReadAt)

	code, env = call(t, r, http.MethodGet, "/api/conversations?q=chioma&limit=5", "staff-001", "")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, 5, page.Limit)

	code, env = call(t, r, http.MethodGet, "/api/conversations/"+conv.ID, "staff-001", "")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"other_participant":{"id":"staff-002"`)
}

func TestConversationEndpointErrors(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		target string
		staff  string
		body   string
		status int
	}{
		{"unauthenticated", http.MethodGet, "/api/conversations", "", "", http.StatusUnauthorized},
		{"missing target", http.MethodPost, "/api/conversations", "staff-001", `{}`, http.StatusBadRequest},
		{"self conversation", http.MethodPost, "/api/conversations", "staff-001", `{"target_id":"staff-001"}`, http.StatusBadRequest},
		{"unknown staff", http.MethodPost, "/api/conversations", "staff-001", `{"target_id":"staff-404"}`, http.StatusNotFound},
		{"not a participant", http.MethodGet, "/api/conversations/conv-001/messages", "staff-002", "", http.StatusForbidden},
		{"unknown conversation", http.MethodPost, "/api/conversations/conv-x/messages", "staff-001", `{"content":"x"}`, http.StatusNotFound},
		{"empty message", http.MethodPost, "/api/conversations/conv-001/messages", "staff-001", `{"content":""}`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/api/conversations?limit=lots", "staff-001", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := call(t, r, tt.method, tt.target, tt.staff, tt.body)
			assert.Equal(t, tt.status, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestWebsocketRoundTrip(t *testing.T) {
	r, hub := newTestRouter(t)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?staff=staff-003"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	readEvent := func() Event {
		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		var e Event
		require.NoError(t, json.Unmarshal(raw, &e))
		return e
	}

	snapshot := readEvent()
	assert.Equal(t, EventConversations, snapshot.Type)
	assert.True(t, hub.IsOnline("staff-003"))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"message","conversation_id":"conv-001","content":"Sent over the socket"}`)))
	e := readEvent()
	assert.Equal(t, EventMessage, e.Type)
	require.NotNil(t, e.Message)
	assert.Equal(t, "staff-003", e.Message.SenderID)
	assert.Equal(t, "Sent over the socket", e.Message.Content)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"message","conversation_id":"conv-404","content":"x"}`)))
	e = readEvent()
	assert.Equal(t, EventError, e.Type)
	assert.Equal(t, "Conversation not found", e.Error)
}
