package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rudra1in/facultyapp-sub000/internal/database"
	"github.com/rudra1in/facultyapp-sub000/internal/models"
	"github.com/rudra1in/facultyapp-sub000/internal/pubsub"
)

type stubDirectory map[string]models.DirectoryEntry

func (d stubDirectory) ResolveName(id string) string {
	if e, ok := d[id]; ok {
		return e.Name
	}
	return "User " + id
}

func (d stubDirectory) Role(id string) (models.Role, bool) {
	e, ok := d[id]
	return e.Role, ok
}

type recordingAlerter struct {
	mu    sync.Mutex
	notes []*models.Notification
}

func (a *recordingAlerter) Create(ctx context.Context, n *models.Notification) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notes = append(a.notes, n)
	return nil
}

func (a *recordingAlerter) all() []*models.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*models.Notification(nil), a.notes...)
}

// tickingClock advances one second per reading so every timestamp differs.
func tickingClock() database.Clock {
	var mu sync.Mutex
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

var (
	alice = models.Viewer{ID: "u1", Role: models.RoleFaculty}
	bob   = models.Viewer{ID: "u2", Role: models.RoleFaculty}
	admin = models.Viewer{ID: "admin-1", Role: models.RoleAdmin}
)

type fixture struct {
	db       *database.MemoryDB
	bus      *pubsub.Bus
	alerter  *recordingAlerter
	unread   *Coordinator
	registry *Registry
	store    *MessageStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithClock(t, tickingClock())
}

func newFixtureWithClock(t *testing.T, clock database.Clock) *fixture {
	t.Helper()
	dir := stubDirectory{
		"u1":      {ID: "u1", Name: "Alice Rao", Role: models.RoleFaculty},
		"u2":      {ID: "u2", Name: "Bob Iyer", Role: models.RoleFaculty},
		"s1":      {ID: "s1", Name: "Sam Student", Role: models.RoleStudent},
		"admin-1": {ID: "admin-1", Name: "Portal Admin", Role: models.RoleAdmin},
	}
	f := &fixture{
		db:      database.NewMemoryDB(database.WithClock(clock)),
		bus:     pubsub.NewBus(),
		alerter: &recordingAlerter{},
	}
	f.unread = NewCoordinator(f.db, dir, f.bus, f.alerter)
	f.registry = NewRegistry(f.db, dir, f.unread)
	f.store = NewMessageStore(f.db, f.registry, f.unread, dir, f.bus)
	t.Cleanup(func() { f.bus.Close() })
	return f
}

func (f *fixture) conversation(t *testing.T, a, b string) *models.Conversation {
	t.Helper()
	conv, err := f.registry.EnsureConversation(context.Background(), a, b)
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, from models.Viewer, conversationID, content string) *models.Message {
	t.Helper()
	msg, err := f.store.Append(context.Background(), from, conversationID, content)
	require.NoError(t, err)
	return msg
}

func contents(messages []*models.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Content
	}
	return out
}
