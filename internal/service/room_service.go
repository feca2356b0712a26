package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sawariz0r/3d-voice-room/internal/domain"

	"github.com/samber/lo"
)

const maxIDAttempts = 5

// IDGenerator returns a fresh candidate room id.
type IDGenerator func() (string, error)

// Room is one live room. Every read or write of users and info happens under
// mu; a closed room is already gone from the caller's point of view.
type Room struct {
	mu     sync.Mutex
	info   domain.RoomInfo
	users  []*domain.Participant
	closed bool
	joined bool
}

func (r *Room) ID() string { return r.info.ID }

// Info returns a copy of the room summary.
func (r *Room) Info() domain.RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info
}

// State returns a copy of the room summary and its participants.
func (r *Room) State() domain.RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Room) snapshot() domain.RoomState {
	users := make([]domain.Participant, 0, len(r.users))
	for _, p := range r.users {
		users = append(users, *p)
	}
	return domain.RoomState{Info: r.info, Users: users}
}

func (r *Room) find(userID string) *domain.Participant {
	p, _ := lo.Find(r.users, func(p *domain.Participant) bool { return p.ID == userID })
	return p
}

func (r *Room) recount() {
	r.info.UserCount = len(r.users)
	r.info.SpeakerCount = lo.CountBy(r.users, func(p *domain.Participant) bool { return p.IsSpeaker })
}

type RoomRegistry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	newID   IDGenerator
	journal *Journal
	now     func() time.Time
}

func NewRoomRegistry(newID IDGenerator, journal *Journal) *RoomRegistry {
	return &RoomRegistry{
		rooms:   make(map[string]*Room),
		newID:   newID,
		journal: journal,
		now:     time.Now,
	}
}

// CreateRoom registers an empty room. The creator is not a member until it
// joins.
func (s *RoomRegistry) CreateRoom(ctx context.Context, title, language, topic, creatorID string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	language = strings.TrimSpace(language)
	if language == "" {
		language = domain.DefaultLanguage
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = domain.DefaultTopic
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for range maxIDAttempts {
		id, err := s.newID()
		if err != nil {
			return "", fmt.Errorf("generate room id: %w", err)
		}
		if _, taken := s.rooms[id]; taken {
			slog.Debug("room id collision", "room", id)
			continue
		}

		s.rooms[id] = &Room{info: domain.RoomInfo{
			ID:        id,
			Title:     title,
			Language:  language,
			Topic:     topic,
			CreatedAt: s.now().UTC(),
		}}
		s.journal.Record(id, domain.EventKindCreated, creatorID, title)
		slog.Info("room created", "room", id, "title", title, "creator", creatorID)
		return id, nil
	}

	return "", domain.ErrRoomIDExhausted
}

// ListRooms returns a snapshot of every live room ordered by creation time.
func (s *RoomRegistry) ListRooms() []domain.RoomInfo {
	s.mu.RLock()
	rooms := lo.Values(s.rooms)
	s.mu.RUnlock()

	out := make([]domain.RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if !r.closed {
			out = append(out, r.info)
		}
		r.mu.Unlock()
	}

	slices.SortFunc(out, func(a, b domain.RoomInfo) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (s *RoomRegistry) GetRoom(id string) (*Room, error) {
	s.mu.RLock()
	r, ok := s.rooms[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("room %q: %w", id, domain.ErrRoomNotFound)
	}
	return r, nil
}

// State returns the full snapshot of a live room.
func (s *RoomRegistry) State(id string) (domain.RoomState, error) {
	r, err := s.GetRoom(id)
	if err != nil {
		return domain.RoomState{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.RoomState{}, fmt.Errorf("room %q: %w", id, domain.ErrRoomNotFound)
	}
	return r.snapshot(), nil
}

// DeleteIfEmpty removes the room when nobody is in it. Safe to call any number
// of times; reports whether this call removed the room.
func (s *RoomRegistry) DeleteIfEmpty(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return false
	}

	r.mu.Lock()
	empty := len(r.users) == 0
	if empty {
		r.closed = true
	}
	r.mu.Unlock()
	if !empty {
		return false
	}

	delete(s.rooms, id)
	s.journal.Record(id, domain.EventKindClosed, "", "")
	slog.Info("room destroyed", "room", id)
	return true
}

// SweepIdle destroys rooms that were created but never joined within ttl.
func (s *RoomRegistry) SweepIdle(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for id, r := range s.rooms {
		r.mu.Lock()
		idle := !r.joined && len(r.users) == 0 && now.Sub(r.info.CreatedAt) >= ttl
		if idle {
			r.closed = true
		}
		r.mu.Unlock()

		if idle {
			delete(s.rooms, id)
			s.journal.Record(id, domain.EventKindClosed, "", "idle")
			removed++
		}
	}
	if removed > 0 {
		slog.Info("idle rooms swept", "count", removed)
	}
	return removed
}

// RunSweeper calls SweepIdle every interval until ctx is done.
func (s *RoomRegistry) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.SweepIdle(now, ttl)
		}
	}
}
