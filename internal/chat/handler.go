package chat

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"smartsender/internal/api"
	"smartsender/internal/apperr"
	myMiddleware "smartsender/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for now (Dev mode)
	},
}

type Handler struct {
	hub     *Hub
	service *Service
}

func NewHandler(hub *Hub, service *Service) *Handler {
	return &Handler{hub: hub, service: service}
}

// Routes mounts the conversation endpoints. sendLimit, when given, wraps
// the message send route.
func (h *Handler) Routes(r chi.Router, sendLimit ...func(http.Handler) http.Handler) {
	r.Get("/ws", h.ServeWs)
	r.Get("/api/conversations", h.ListConversations)
	r.Post("/api/conversations", h.StartConversation)
	r.Get("/api/conversations/{id}", h.GetConversation)
	r.Get("/api/conversations/{id}/messages", h.GetMessages)
	r.With(sendLimit...).Post("/api/conversations/{id}/messages", h.SendMessage)
	r.Post("/api/conversations/{id}/read", h.MarkRead)
}

func viewer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := myMiddleware.StaffID(r.Context())
	if !ok {
		api.Fail(w, apperr.Unauthorized("Not authenticated"))
	}
	return id, ok
}

func (h *Handler) ServeWs(w http.ResponseWriter, r *http.Request) {
	staffID, ok := viewer(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.hub.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		Hub:     h.hub,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		StaffID: staffID,
		Name:    myMiddleware.StaffName(r.Context()),
	}
	if !client.Hub.register(client) {
		conn.Close()
		return
	}

	// Initial snapshot of the inbox, like the history the page loads first.
	if page, err := h.service.Conversations(r.Context(), staffID, Filter{}); err == nil {
		snapshot, _ := json.Marshal(Event{
			Type: EventConversations,
			Data: page.Items,
			At:   time.Now().UTC(),
		})
		select {
		case client.Send <- snapshot:
		default:
		}
	}

	go client.WritePump()
	go client.ReadPump()
}

// ListConversations serves ?q=&unread=&limit=&offset=.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	staffID, ok := viewer(w, r)
	if !ok {
		return
	}
	f, err := ParseFilter(r.URL.Query())
	if err != nil {
		api.Fail(w, err)
		return
	}
	page, err := h.service.Conversations(r.Context(), staffID, f)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, page)
}

// StartConversation finds or creates the conversation with target_id.
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	staffID, ok := viewer(w, r)
	if !ok {
		return
	}
	var req StartConversationRequest
	if err := api.Decode(r, &req); err != nil {
		api.Fail(w, err)
		return
	}
	conv, err := h.service.StartConversation(r.Context(), staffID, req.TargetID)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, conv)
}

func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	staffID, ok := viewer(w, r)
	if !ok {
		return
	}
	item, err := h.service.Conversation(r.Context(), staffID, chi.URLParam(r, "id"))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, item)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	staffID, ok := viewer(w, r)
	if !ok {
		return
	}
	msgs, err := h.service.Messages(r.Context(), staffID, chi.URLParam(r, "id"))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, msgs)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	staffID, ok := viewer(w, r)
	if !ok {
		return
	}
	var req SendMessageRequest
	if err := api.Decode(r, &req); err != nil {
		api.Fail(w, err)
		return
	}
	req.ConversationID = chi.URLParam(r, "id")

	msg, err := h.service.SendMessage(r.Context(), staffID, req)
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.Created(w, msg)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	staffID, ok := viewer(w, r)
	if !ok {
		return
	}
	n, err := h.service.MarkRead(r.Context(), staffID, chi.URLParam(r, "id"))
	if err != nil {
		api.Fail(w, err)
		return
	}
	api.OK(w, map[string]int{"marked": n})
}
