package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sawariz0r/3d-voice-room/internal/domain"
)

// JournalStore persists batches of room lifecycle events.
type JournalStore interface {
	Append(ctx context.Context, events []domain.RoomEvent) error
}

// Journal is a write-behind audit trail of room lifecycle events. Record never
// blocks: when the buffer is full the event is dropped and counted. A nil
// *Journal records nothing.
type Journal struct {
	store      JournalStore
	events     chan domain.RoomEvent
	batchSize  int
	flushEvery time.Duration
	dropped    atomic.Int64
	now        func() time.Time
}

func NewJournal(store JournalStore, buffer, batchSize int, flushEvery time.Duration) *Journal {
	if buffer <= 0 {
		buffer = 1024
	}
	if batchSize <= 0 {
		batchSize = 64
	}
	if flushEvery <= 0 {
		flushEvery = time.Second
	}
	return &Journal{
		store:      store,
		events:     make(chan domain.RoomEvent, buffer),
		batchSize:  batchSize,
		flushEvery: flushEvery,
		now:        time.Now,
	}
}

func (j *Journal) Record(roomID, kind, userID, detail string) {
	if j == nil {
		return
	}
	evt := domain.RoomEvent{
		RoomID: roomID,
		Kind:   kind,
		UserID: userID,
		Detail: detail,
		At:     j.now().UTC(),
	}
	select {
	case j.events <- evt:
	default:
		j.dropped.Add(1)
	}
}

// Dropped is the number of events lost to a full buffer.
func (j *Journal) Dropped() int64 {
	if j == nil {
		return 0
	}
	return j.dropped.Load()
}

// Run drains the buffer into the store until ctx is done, then flushes what is
// left with a short grace period.
func (j *Journal) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.flushEvery)
	defer ticker.Stop()

	batch := make([]domain.RoomEvent, 0, j.batchSize)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := j.store.Append(ctx, batch); err != nil {
			slog.Warn("journal append failed", "events", len(batch), "err", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
		drain:
			for {
				select {
				case evt := <-j.events:
					batch = append(batch, evt)
				default:
					break drain
				}
			}
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			flush(flushCtx)
			cancel()
			return ctx.Err()
		case evt := <-j.events:
			batch = append(batch, evt)
			if len(batch) >= j.batchSize {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		}
	}
}
