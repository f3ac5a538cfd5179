package chat

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"smartsender/internal/apperr"
	"smartsender/internal/metrics"
)

const (
	localBufferSize = 256
	inboundTimeout  = 10 * time.Second
)

// Inbound is what the hub needs to act on frames sent by clients.
type Inbound interface {
	SendMessage(ctx context.Context, viewerID string, req SendMessageRequest) (*Message, error)
	MarkRead(ctx context.Context, viewerID, conversationID string) (int, error)
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte           // Redis (or local loop) -> clients
	direct     chan directMessage    // replies to a single client
	Register   chan *Client          // New client joins
	Unregister chan *Client          // Client leaves
	Publish    chan *IncomingMessage // Client frames -> service
	done       chan struct{}

	redis   *redis.Client
	channel string
	sink    Inbound

	// online counts registered clients per staff id.
	mu     sync.RWMutex
	online map[string]int

	log     *zap.Logger
	metrics *metrics.Metrics
}

type IncomingMessage struct {
	Client  *Client
	Payload []byte
}

type directMessage struct {
	client  *Client
	payload []byte
}

// NewHub builds a hub. With a nil redis client events loop back locally
// and only reach clients of this process.
func NewHub(redisClient *redis.Client, channel string, log *zap.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	if channel == "" {
		channel = "smartsender:events"
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, localBufferSize),
		direct:     make(chan directMessage, localBufferSize),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Publish:    make(chan *IncomingMessage),
		done:       make(chan struct{}),
		redis:      redisClient,
		channel:    channel,
		online:     make(map[string]int),
		log:        log.Named("hub"),
		metrics:    m,
	}
}

// Bind sets the receiver of client frames. It must be called before Run.
func (h *Hub) Bind(sink Inbound) {
	h.sink = sink
}

// Run owns the client map until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			return nil

		case client := <-h.Register:
			h.clients[client] = true
			h.setOnline(client.StaffID, 1)
			h.metrics.ClientConnected()

		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				h.remove(client)
			}

		case msg := <-h.Publish:
			// Handled off the loop: the service may block on storage or latency.
			go h.dispatch(msg)

		case d := <-h.direct:
			if _, ok := h.clients[d.client]; ok {
				h.send(d.client, d.payload)
			}

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.Send)
	h.setOnline(client.StaffID, -1)
	h.metrics.ClientDisconnected()
}

// deliver forwards an event to the clients of its recipients.
func (h *Hub) deliver(payload []byte) {
	var head struct {
		Recipients []string `json:"recipients"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		h.log.Warn("dropping undecodable event", zap.Error(err))
		return
	}
	to := make(map[string]bool, len(head.Recipients))
	for _, id := range head.Recipients {
		to[id] = true
	}
	for client := range h.clients {
		if to[client.StaffID] {
			h.send(client, payload)
		}
	}
}

// send never blocks the loop; a client that cannot keep up is dropped.
func (h *Hub) send(client *Client, payload []byte) {
	select {
	case client.Send <- payload:
	default:
		h.log.Warn("client send buffer full, disconnecting", zap.String("staff_id", client.StaffID))
		h.remove(client)
	}
}

func (h *Hub) setOnline(staffID string, delta int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.online[staffID] += delta
	if h.online[staffID] <= 0 {
		delete(h.online, staffID)
	}
}

// IsOnline reports whether staffID has a client on this instance.
func (h *Hub) IsOnline(staffID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.online[staffID] > 0
}

// Notify publishes e to every instance through Redis, or to this
// instance's clients when Redis is not configured or refuses the publish.
func (h *Hub) Notify(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		h.log.Error("encode event", zap.Error(err))
		return
	}
	if h.redis != nil {
		err := h.redis.Publish(context.WithoutCancel(ctx), h.channel, payload).Err()
		if err == nil {
			return
		}
		h.log.Warn("redis publish failed, delivering locally", zap.Error(err))
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("local event buffer full, dropping event",
			zap.String("type", string(e.Type)),
			zap.String("conversation_id", e.ConversationID),
		)
	}
}

// SubscribeToRedis listens for events from every instance.
func (h *Hub) SubscribeToRedis(ctx context.Context) error {
	if h.redis == nil {
		return nil
	}
	pubsub := h.redis.Subscribe(ctx, h.channel)
	defer pubsub.Close()
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			select {
			case h.broadcast <- []byte(msg.Payload):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// dispatch runs one client frame through the service. Successful actions
// come back to the client as regular events; failures are answered directly.
func (h *Hub) dispatch(msg *IncomingMessage) {
	c := msg.Client
	var frame WSMessage
	if err := json.Unmarshal(msg.Payload, &frame); err != nil {
		h.reply(c, apperr.Validation("invalid frame"))
		return
	}
	if h.sink == nil {
		h.log.Error("hub has no inbound sink bound")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), inboundTimeout)
	defer cancel()

	var err error
	switch frame.Type {
	case EventMessage:
		_, err = h.sink.SendMessage(ctx, c.StaffID, SendMessageRequest{
			ConversationID: frame.ConversationID,
			Content:        frame.Content,
			Media:          frame.Media,
		})
	case EventRead:
		_, err = h.sink.MarkRead(ctx, c.StaffID, frame.ConversationID)
	default:
		err = apperr.Validation("unknown frame type " + string(frame.Type))
	}
	if err != nil {
		h.reply(c, err)
	}
}

func (h *Hub) reply(c *Client, err error) {
	msg := err.Error()
	if !apperr.Known(err) {
		h.log.Error("inbound frame failed", zap.String("staff_id", c.StaffID), zap.Error(err))
		msg = "internal error"
	}
	payload, _ := json.Marshal(Event{Type: EventError, Error: msg, At: time.Now().UTC()})
	select {
	case h.direct <- directMessage{client: c, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) publish(msg *IncomingMessage) bool {
	select {
	case h.Publish <- msg:
		return true
	case <-h.done:
		return false
	}
}
