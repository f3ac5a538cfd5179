package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smartsender/internal/staff"
	"smartsender/internal/storage"
	"smartsender/internal/store"
)

type fixture struct {
	store         *store.Store
	staff         *staff.Repository
	conversations *store.Collection[Conversation]
	messages      *store.Collection[Message]
}

// newFixture wires empty collections and the default staff directory on a
// memory substrate.
func newFixture(t *testing.T, log *zap.Logger) *fixture {
	t.Helper()
	st := store.New(storage.NewMemory(), log, nil)
	repo, err := staff.NewRepository(st, staff.DefaultFixtures())
	require.NoError(t, err)
	return &fixture{
		store:         st,
		staff:         repo,
		conversations: store.NewCollection[Conversation](st, store.KeyConversations, nil),
		messages:      store.NewCollection[Message](st, store.KeyMessages, nil),
	}
}

func (f *fixture) ledger(log *zap.Logger) *Ledger {
	return NewLedger(f.conversations, f.messages, log)
}

func (f *fixture) lifecycle() *Lifecycle {
	return NewLifecycle(f.conversations, f.staff, nil)
}

func (f *fixture) resolver(p Presence) *Resolver {
	return NewResolver(f.conversations, f.messages, f.staff, p)
}

type fakePresence map[string]bool

func (p fakePresence) IsOnline(id string) bool { return p[id] }

// recorder collects notified events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
