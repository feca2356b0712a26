package domain

import "time"

const (
	DefaultLanguage = "English"
	DefaultTopic    = "Casual Chat"
)

// RoomInfo is the summary broadcast to clients and listed in the lobby.
type RoomInfo struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Language     string    `json:"language"`
	Topic        string    `json:"topic"`
	HostID       string    `json:"hostId"`
	UserCount    int       `json:"userCount"`
	SpeakerCount int       `json:"speakerCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RoomState is the full snapshot sent to a participant right after join.
type RoomState struct {
	Info  RoomInfo      `json:"info"`
	Users []Participant `json:"users"`
}
