package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sawariz0r/3d-voice-room/internal/assistant"
	"github.com/sawariz0r/3d-voice-room/internal/domain"
	"github.com/sawariz0r/3d-voice-room/internal/moderation"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

const defaultMaxMessageLength = 4000

type ChatOptions struct {
	MaxLength      int
	ReplyTimeout   time.Duration
	ReplyDelay     time.Duration
	DetectLanguage bool
}

// ChatService fans chat lines and voice levels out to a room. Messages that
// mention the tutor get an asynchronous reply from the assistant.
type ChatService struct {
	rooms     *RoomRegistry
	notifier  Notifier
	moderator *moderation.Moderator
	assistant assistant.Assistant
	opts      ChatOptions
	now       func() time.Time

	// replies derive from ctx; Stop cancels it.
	ctx     context.Context
	cancel  context.CancelFunc
	pending sync.WaitGroup
}

// NewChatService builds the chat fan-out. moderator and asst may be nil.
func NewChatService(rooms *RoomRegistry, notifier Notifier, moderator *moderation.Moderator, asst assistant.Assistant, opts ChatOptions) *ChatService {
	if opts.MaxLength <= 0 {
		opts.MaxLength = defaultMaxMessageLength
	}
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatService{
		ctx:       ctx,
		cancel:    cancel,
		rooms:     rooms,
		notifier:  notifier,
		moderator: moderator,
		assistant: asst,
		opts:      opts,
		now:       time.Now,
	}
}

// Send broadcasts text from userID to the whole room, sender included.
func (s *ChatService) Send(ctx context.Context, roomID, userID, text string) (domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ChatMessage{}, fmt.Errorf("%w: empty message", domain.ErrValidation)
	}
	if utf8.RuneCountInString(text) > s.opts.MaxLength {
		return domain.ChatMessage{}, fmt.Errorf("%w: message too long", domain.ErrValidation)
	}

	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return domain.ChatMessage{}, fmt.Errorf("room %q: %w", roomID, domain.ErrRoomNotFound)
	}
	if room.find(userID) == nil {
		room.mu.Unlock()
		return domain.ChatMessage{}, fmt.Errorf("user %q: %w", userID, domain.ErrNotInRoom)
	}

	clean, censored := s.moderator.Censor(text)
	if len(censored) > 0 {
		slog.Debug("chat message censored", "room", roomID, "user", userID, "words", len(censored))
	}
	msg := domain.ChatMessage{
		UserID:    userID,
		Text:      clean,
		Timestamp: s.now().UnixMilli(),
	}
	if s.opts.DetectLanguage {
		if info := whatlanggo.Detect(clean); info.IsReliable() {
			msg.Lang = info.Lang.Iso6391()
		}
	}
	s.notifier.Broadcast(roomID, domain.EventNewMessage, msg, "")

	var prompt assistant.Prompt
	mention := s.assistant != nil && s.ctx.Err() == nil && assistant.Mentioned(text)
	if mention {
		prompt = assistant.Prompt{
			Message:  clean,
			Users:    lo.Map(room.users, func(p *domain.Participant, _ int) string { return p.Username }),
			Topic:    room.info.Topic,
			Language: room.info.Language,
		}
	}
	room.mu.Unlock()

	if mention {
		s.pending.Add(1)
		go s.reply(roomID, prompt)
	}
	return msg, nil
}

// reply asks the assistant for an answer and posts it as the tutor. The room
// may be gone by the time the answer is ready; the reply is dropped then.
func (s *ChatService) reply(roomID string, prompt assistant.Prompt) {
	defer s.pending.Done()

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.ReplyTimeout)
	defer cancel()

	text, err := s.assistant.Reply(ctx, prompt)
	if err != nil {
		slog.Warn("assistant reply failed", "room", roomID, "err", err)
		text = assistant.ListeningReply
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	if s.opts.ReplyDelay > 0 {
		select {
		case <-s.ctx.Done():
			slog.Debug("assistant reply abandoned", "room", roomID)
			return
		case <-time.After(s.opts.ReplyDelay):
		}
	}

	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return
	}
	s.notifier.Broadcast(roomID, domain.EventNewMessage, domain.ChatMessage{
		UserID:    domain.AIHostID,
		Text:      text,
		Timestamp: s.now().UnixMilli(),
	}, "")
}

// Wait blocks until every in-flight assistant reply has finished.
func (s *ChatService) Wait() {
	s.pending.Wait()
}

// Stop abandons pending assistant replies and waits for their goroutines.
// Later mentions no longer reach the assistant.
func (s *ChatService) Stop() {
	s.cancel()
	s.pending.Wait()
}

// VoiceActivity forwards a speaking level to everyone else in the room.
func (s *ChatService) VoiceActivity(ctx context.Context, roomID, userID string, volume float64) error {
	room, err := s.rooms.GetRoom(roomID)
	if err != nil {
		return err
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return fmt.Errorf("room %q: %w", roomID, domain.ErrRoomNotFound)
	}
	if room.find(userID) == nil {
		return fmt.Errorf("user %q: %w", userID, domain.ErrNotInRoom)
	}

	s.notifier.Broadcast(roomID, domain.EventUserVoiceActivity, domain.VoiceActivity{
		UserID: userID,
		Volume: volume,
	}, userID)
	return nil
}
