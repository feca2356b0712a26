// Package assistant is the boundary to the AI tutor that answers chat
// mentions. Reply generation itself lives outside this service.
package assistant

import (
	"context"
	"strings"
)

//go:generate mockgen -source=assistant.go -destination=mocks/assistant_mock.go -package=mocks

const (
	UnavailableReply = "My voice is currently unavailable."
	ListeningReply   = "I'm listening!"
)

// Prompt is the chat line plus the room context the tutor needs.
type Prompt struct {
	Message  string
	Users    []string
	Topic    string
	Language string
}

type Assistant interface {
	Reply(ctx context.Context, p Prompt) (string, error)
}

// Unavailable answers every prompt with the canned offline reply. It is used
// when no model backend is configured.
type Unavailable struct{}

func (Unavailable) Reply(context.Context, Prompt) (string, error) {
	return UnavailableReply, nil
}

// Mentioned reports whether a chat line addresses the tutor.
func Mentioned(text string) bool {
	t := strings.ToLower(text)
	return strings.Contains(t, "@ai") || strings.Contains(t, "@host")
}
