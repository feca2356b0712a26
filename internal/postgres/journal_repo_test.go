package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/sawariz0r/3d-voice-room/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when VOXSTAGE_TEST_DSN is set.
func TestJournalRepository_Append_And_History(t *testing.T) {
	dsn := os.Getenv("VOXSTAGE_TEST_DSN")
	if dsn == "" {
		t.Skip("VOXSTAGE_TEST_DSN not set")
	}
	req := require.New(t)
	ctx := context.Background()

	pool, err := NewPool(ctx, Config{DSN: dsn, MaxConns: 2})
	req.NoError(err)
	t.Cleanup(pool.Close)

	repo := NewJournalRepository(pool)
	req.NoError(repo.EnsureSchema(ctx))

	roomID := uuid.NewString()[:7]
	base := time.Now().UTC().Truncate(time.Millisecond)
	events := []domain.RoomEvent{
		{RoomID: roomID, Kind: domain.EventKindCreated, UserID: "a", Detail: "Practice", At: base},
		{RoomID: roomID, Kind: domain.EventKindJoined, UserID: "a", At: base.Add(time.Second)},
		{RoomID: roomID, Kind: domain.EventKindJoined, UserID: "b", At: base.Add(2 * time.Second)},
	}
	req.NoError(repo.Append(ctx, events))

	page, next, err := repo.History(ctx, roomID, "", 2)
	req.NoError(err)
	req.Len(page, 2)
	req.Equal("b", page[0].UserID)
	req.NotEmpty(next)

	rest, next, err := repo.History(ctx, roomID, next, 2)
	req.NoError(err)
	req.Len(rest, 1)
	req.Equal(domain.EventKindCreated, rest[0].Kind)
	req.Empty(next)
}

func TestDecodeCursor(t *testing.T) {
	req := require.New(t)

	cur, err := DecodeCursor("ab12cd", "")
	req.NoError(err)
	req.Nil(cur)

	_, err = DecodeCursor("ab12cd", "%%%")
	req.ErrorIs(err, ErrInvalidCursor)

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := Cursor{RoomID: "ab12cd", At: at, ID: 7}.String()

	cur, err = DecodeCursor("ab12cd", s)
	req.NoError(err)
	req.True(at.Equal(cur.At))
	req.EqualValues(7, cur.ID)

	_, err = DecodeCursor("zz99yy", s)
	req.ErrorIs(err, ErrInvalidCursor)
}
