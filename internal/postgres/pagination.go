package postgres

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor points at the last event of a history page. Events are ordered by
// (at, id) descending, so the next page starts strictly below it.
type Cursor struct {
	RoomID string    `json:"r"`
	At     time.Time `json:"t"`
	ID     int64     `json:"i"`
}

func (c Cursor) String() string {
	data, _ := json.Marshal(c) // plain fields, cannot fail
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor handed out for roomID. An empty string means
// the first page. A cursor minted for another room is rejected.
func DecodeCursor(roomID, s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.RoomID != roomID || c.ID <= 0 {
		return nil, fmt.Errorf("%w: not issued for room %q", ErrInvalidCursor, roomID)
	}
	return &c, nil
}
