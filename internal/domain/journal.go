package domain

import "time"

// RoomEvent is one audit row of the room lifecycle journal.
type RoomEvent struct {
	ID     int64     `json:"id"`
	RoomID string    `json:"roomId"`
	Kind   string    `json:"kind"`
	UserID string    `json:"userId,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

const (
	EventKindCreated  = "created"
	EventKindJoined   = "joined"
	EventKindLeft     = "left"
	EventKindPromoted = "promoted"
	EventKindDemoted  = "demoted"
	EventKindHost     = "host_changed"
	EventKindClosed   = "closed"
)
