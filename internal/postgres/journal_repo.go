package postgres

import (
	"context"
	"fmt"

	"github.com/sawariz0r/3d-voice-room/internal/domain"

	"github.com/jackc/pgx/v5"
)

// JournalRepository stores the room lifecycle audit trail.
type JournalRepository struct {
	q querier
}

func NewJournalRepository(q querier) *JournalRepository {
	return &JournalRepository{q: q}
}

func (r *JournalRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, queryCreateRoomEvents); err != nil {
		return fmt.Errorf("create room_events: %w", err)
	}
	return nil
}

// Append writes a batch with COPY.
func (r *JournalRepository) Append(ctx context.Context, events []domain.RoomEvent) error {
	if len(events) == 0 {
		return nil
	}
	_, err := r.q.CopyFrom(ctx, pgx.Identifier{"room_events"}, roomEventColumns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.RoomID, e.Kind, e.UserID, e.Detail, e.At}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy room_events: %w", err)
	}
	return nil
}

// History returns a room's events newest first, paginated by cursor.
func (r *JournalRepository) History(ctx context.Context, roomID, after string, limit int) ([]domain.RoomEvent, string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	cur, err := DecodeCursor(roomID, after)
	if err != nil {
		return nil, "", err
	}

	var at, id any
	if cur != nil {
		at = cur.At
		id = cur.ID
	}

	rows, err := r.q.Query(ctx, queryRoomHistory, roomID, at, id, limit)
	if err != nil {
		return nil, "", err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.RoomEvent, error) {
		var e domain.RoomEvent
		err := row.Scan(&e.ID, &e.RoomID, &e.Kind, &e.UserID, &e.Detail, &e.At)
		return e, err
	})
	if err != nil {
		return nil, "", err
	}

	var next string
	if len(out) == limit {
		last := out[len(out)-1]
		next = Cursor{RoomID: roomID, At: last.At, ID: last.ID}.String()
	}
	return out, next, nil
}
