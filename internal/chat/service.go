package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"smartsender/internal/apperr"
	"smartsender/internal/files"
	"smartsender/internal/metrics"
	"smartsender/internal/store"
)

const MaxContentLength = 5000

// Notifier fans service events out to connected clients.
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) {}

// Latency is the artificial delay per operation, used to exercise clients
// against a slow backend.
type Latency struct {
	List     time.Duration
	Search   time.Duration
	Messages time.Duration
	Send     time.Duration
	Read     time.Duration
	Start    time.Duration
}

// DefaultLatency is used when chat.simulate_latency is on.
var DefaultLatency = Latency{
	List:     400 * time.Millisecond,
	Search:   300 * time.Millisecond,
	Messages: 300 * time.Millisecond,
	Send:     500 * time.Millisecond,
	Read:     200 * time.Millisecond,
	Start:    300 * time.Millisecond,
}

// Service is the messaging API used by the HTTP and websocket handlers.
type Service struct {
	ledger    *Ledger
	resolver  *Resolver
	lifecycle *Lifecycle
	staff     StaffDirectory

	presence Presence
	notifier Notifier
	metrics  *metrics.Metrics
	latency  *Latency
	seed     bool
	log      *zap.Logger
}

type Option func(*Service)

func WithPresence(p Presence) Option { return func(s *Service) { s.presence = p } }

func WithNotifier(n Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

// WithSeed controls whether an empty store gets the demo conversation.
func WithSeed(on bool) Option { return func(s *Service) { s.seed = on } }

// WithLatency enables artificial delays.
func WithLatency(l Latency) Option { return func(s *Service) { s.latency = &l } }

func NewService(st *store.Store, dir StaffDirectory, opts ...Option) *Service {
	s := &Service{
		staff:    dir,
		notifier: nopNotifier{},
		seed:     true,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("chat")

	seedConvs, seedMsgs := SeedConversations, SeedMessages
	if !s.seed {
		seedConvs, seedMsgs = nil, nil
	}
	conversations := store.NewCollection(st, store.KeyConversations, seedConvs)
	messages := store.NewCollection(st, store.KeyMessages, seedMsgs)
	s.ledger = NewLedger(conversations, messages, s.log)
	s.resolver = NewResolver(conversations, messages, dir, s.presence)
	s.lifecycle = NewLifecycle(conversations, dir, s.log)
	return s
}

// Conversations lists the viewer's conversations, searching when the
// filter carries a query.
func (s *Service) Conversations(ctx context.Context, viewerID string, f Filter) (Page, error) {
	d := s.delayFor(func(l *Latency) time.Duration { return l.List })
	if f.Query != "" {
		d = s.delayFor(func(l *Latency) time.Duration { return l.Search })
	}
	if err := sleep(ctx, d); err != nil {
		return Page{}, err
	}
	var items []ConversationListItem
	if strings.TrimSpace(f.Query) == "" {
		items = s.resolver.List(ctx, viewerID)
	} else {
		items = s.resolver.Search(ctx, viewerID, f.Query)
	}
	return f.Apply(items), nil
}

// SearchConversations falls back to the full list for a blank query.
func (s *Service) SearchConversations(ctx context.Context, viewerID, query string) ([]ConversationListItem, error) {
	page, err := s.Conversations(ctx, viewerID, Filter{Query: strings.TrimSpace(query)})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Conversation returns one of the viewer's conversations as a list item.
func (s *Service) Conversation(ctx context.Context, viewerID, conversationID string) (*ConversationListItem, error) {
	if _, err := s.participantOf(ctx, viewerID, conversationID); err != nil {
		return nil, err
	}
	for _, it := range s.resolver.List(ctx, viewerID) {
		if it.ID == conversationID {
			return &it, nil
		}
	}
	return nil, apperr.NotFound("Conversation not found")
}

func (s *Service) StartConversation(ctx context.Context, viewerID, otherID string) (*Conversation, error) {
	if err := sleep(ctx, s.delayFor(func(l *Latency) time.Duration { return l.Start })); err != nil {
		return nil, err
	}
	conv, created, err := s.lifecycle.GetOrCreate(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	if created {
		s.metrics.ConversationCreated()
	}
	return conv, nil
}

func (s *Service) Messages(ctx context.Context, viewerID, conversationID string) ([]Message, error) {
	if err := sleep(ctx, s.delayFor(func(l *Latency) time.Duration { return l.Messages })); err != nil {
		return nil, err
	}
	if _, err := s.participantOf(ctx, viewerID, conversationID); err != nil {
		return nil, err
	}
	return s.ledger.List(ctx, conversationID), nil
}

func (s *Service) SendMessage(ctx context.Context, viewerID string, req SendMessageRequest) (*Message, error) {
	media, err := validateMessage(req)
	if err != nil {
		return nil, err
	}
	if err := sleep(ctx, s.delayFor(func(l *Latency) time.Duration { return l.Send })); err != nil {
		return nil, err
	}
	conv, err := s.participantOf(ctx, viewerID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	senderName := viewerID
	if sender, err := s.staff.Get(ctx, viewerID); err == nil {
		senderName = sender.FullName()
	}

	msg, err := s.ledger.Append(ctx, conv.ID, viewerID, senderName, req.Content, media)
	if err != nil {
		return nil, err
	}
	s.metrics.MessageSent()

	s.notifier.Notify(ctx, Event{
		Type:           EventMessage,
		ConversationID: conv.ID,
		Recipients:     conv.ParticipantIDs,
		Message:        msg,
		At:             msg.SentAt,
	})
	return msg, nil
}

// MarkRead marks the conversation read for viewerID and returns how many
// messages changed.
func (s *Service) MarkRead(ctx context.Context, viewerID, conversationID string) (int, error) {
	if err := sleep(ctx, s.delayFor(func(l *Latency) time.Duration { return l.Read })); err != nil {
		return 0, err
	}
	conv, err := s.participantOf(ctx, viewerID, conversationID)
	if err != nil {
		return 0, err
	}
	n, err := s.ledger.MarkRead(ctx, conv.ID, viewerID)
	if err != nil {
		return 0, err
	}
	s.metrics.MessagesRead(n)

	if n > 0 {
		s.notifier.Notify(ctx, Event{
			Type:           EventRead,
			ConversationID: conv.ID,
			Recipients:     conv.ParticipantIDs,
			ReaderID:       viewerID,
			ReadCount:      n,
			At:             time.Now().UTC(),
		})
	}
	return n, nil
}

func (s *Service) participantOf(ctx context.Context, viewerID, conversationID string) (*Conversation, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, apperr.Validation("Conversation id is required")
	}
	conv, err := s.lifecycle.Find(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(viewerID) {
		return nil, apperr.Forbidden("You are not a participant in this conversation")
	}
	return conv, nil
}

// validateMessage checks a send request and returns its media with missing
// types inferred from the file name.
func validateMessage(req SendMessageRequest) ([]MessageMedia, error) {
	if strings.TrimSpace(req.Content) == "" && len(req.Media) == 0 {
		return nil, apperr.Validation("Message must have content or media")
	}
	if utf8.RuneCountInString(req.Content) > MaxContentLength {
		return nil, apperr.Validation("Message exceeds 5000 characters")
	}
	media := make([]MessageMedia, len(req.Media))
	for i, m := range req.Media {
		if strings.TrimSpace(m.Name) == "" {
			return nil, apperr.Validation("Media name is required")
		}
		if m.Size < 0 || m.Size > files.MaxFileSize {
			return nil, apperr.Validation("File size exceeds 100MB limit")
		}
		switch m.Type {
		case MediaImage, MediaVideo, MediaDocument, MediaFile:
		case "":
			m.Type = MediaTypeFor(m.Name)
		default:
			return nil, apperr.Validation("Unknown media type " + string(m.Type))
		}
		media[i] = m
	}
	return media, nil
}

// MediaTypeFor infers an attachment type from its file name.
func MediaTypeFor(name string) MediaType {
	switch files.CategoryOf(files.Extension(name)) {
	case files.CategoryImage:
		return MediaImage
	case files.CategoryVideo:
		return MediaVideo
	case files.CategoryDocument:
		return MediaDocument
	default:
		return MediaFile
	}
}

func (s *Service) delayFor(pick func(*Latency) time.Duration) time.Duration {
	if s.latency == nil {
		return 0
	}
	return pick(s.latency)
}

// sleep waits d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
