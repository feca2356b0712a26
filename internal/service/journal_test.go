package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sawariz0r/3d-voice-room/internal/domain"

	"github.com/stretchr/testify/require"
)

type memJournalStore struct {
	mu      sync.Mutex
	batches [][]domain.RoomEvent
}

func (s *memJournalStore) Append(_ context.Context, events []domain.RoomEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]domain.RoomEvent(nil), events...))
	return nil
}

func (s *memJournalStore) all() []domain.RoomEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoomEvent
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func TestJournal_Nil_Is_Noop(t *testing.T) {
	var j *Journal
	j.Record("room", domain.EventKindCreated, "a", "")
	require.Zero(t, j.Dropped())
}

func TestJournal_Drops_When_Full(t *testing.T) {
	j := NewJournal(&memJournalStore{}, 2, 10, time.Hour)

	for range 5 {
		j.Record("room", domain.EventKindJoined, "a", "")
	}

	require.EqualValues(t, 3, j.Dropped())
}

func TestJournal_Run_Flushes_Batches_And_On_Shutdown(t *testing.T) {
	req := require.New(t)
	store := &memJournalStore{}
	j := NewJournal(store, 100, 2, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	// When a full batch is recorded it is written without waiting for the ticker
	j.Record("room", domain.EventKindCreated, "a", "Practice")
	j.Record("room", domain.EventKindJoined, "a", "Alice")
	req.Eventually(func() bool { return len(store.all()) == 2 }, time.Second, 5*time.Millisecond)

	// And a partial batch is written on shutdown
	j.Record("room", domain.EventKindLeft, "a", "")
	cancel()
	req.ErrorIs(<-done, context.Canceled)

	events := store.all()
	req.Len(events, 3)
	req.Equal(domain.EventKindLeft, events[2].Kind)
	req.Equal("room", events[2].RoomID)
}

func TestRoleEngine_Writes_Journal(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := &memJournalStore{}
	journal := NewJournal(store, 100, 100, time.Hour)
	notifier := newFakeNotifier()
	notifier.connect("a")
	registry := NewRoomRegistry(sequentialIDs("abc1234"), journal)
	engine := NewRoleEngine(registry, notifier, NewPlacer(1), journal)

	roomID, err := registry.CreateRoom(ctx, "Practice", "", "", "a")
	req.NoError(err)
	_, err = engine.Join(ctx, roomID, "a", "Alice")
	req.NoError(err)
	req.NoError(engine.Leave(ctx, roomID, "a"))

	runCtx, cancel := context.WithCancel(ctx)
	cancel()
	_ = journal.Run(runCtx)

	var kinds []string
	for _, e := range store.all() {
		kinds = append(kinds, e.Kind)
	}
	req.Equal([]string{domain.EventKindCreated, domain.EventKindJoined, domain.EventKindLeft, domain.EventKindClosed}, kinds)
}
