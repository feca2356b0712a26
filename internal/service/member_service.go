package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sawariz0r/3d-voice-room/internal/domain"
)

// RoleEngine owns membership and the audience/hand-raised/speaker/host state
// machine of every room. Each transition and the notifications it produces
// happen under the room's lock, so no other transition on that room can
// interleave with them.
type RoleEngine struct {
	rooms    *RoomRegistry
	notifier Notifier
	placer   *Placer
	journal  *Journal
}

func NewRoleEngine(rooms *RoomRegistry, notifier Notifier, placer *Placer, journal *Journal) *RoleEngine {
	return &RoleEngine{
		rooms:    rooms,
		notifier: notifier,
		placer:   placer,
		journal:  journal,
	}
}

// lock returns the room locked, or ErrRoomNotFound when it is gone.
func (e *RoleEngine) lock(roomID string) (*Room, error) {
	room, err := e.rooms.GetRoom(roomID)
	if err != nil {
		return nil, err
	}
	room.mu.Lock()
	if room.closed {
		room.mu.Unlock()
		return nil, fmt.Errorf("room %q: %w", roomID, domain.ErrRoomNotFound)
	}
	return room, nil
}

// Join adds userID to the room. The first member becomes host at HostSlot,
// later ones join the audience. Joining a room twice resends the snapshot.
func (e *RoleEngine) Join(ctx context.Context, roomID, userID, username string) (domain.RoomState, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.RoomState{}, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}

	room, err := e.lock(roomID)
	if err != nil {
		return domain.RoomState{}, err
	}
	defer room.mu.Unlock()

	if room.find(userID) != nil {
		state := room.snapshot()
		if err := e.notifier.Send(userID, domain.EventRoomState, state); err != nil {
			slog.Debug("send room state failed", "room", roomID, "user", userID, "err", err)
		}
		return state, nil
	}

	p := &domain.Participant{
		ID:       userID,
		Username: username,
		Color:    e.placer.Color(),
	}
	if len(room.users) == 0 {
		p.IsHost = true
		p.IsSpeaker = true
		p.Position = HostSlot
		room.info.HostID = userID
	} else {
		p.Position = e.placer.CrowdSlot()
	}

	room.users = append(room.users, p)
	room.joined = true
	room.recount()
	e.notifier.Subscribe(roomID, userID)

	state := room.snapshot()
	if err := e.notifier.Send(userID, domain.EventRoomState, state); err != nil {
		slog.Debug("send room state failed", "room", roomID, "user", userID, "err", err)
	}
	e.notifier.Broadcast(roomID, domain.EventUserJoined, *p, userID)
	e.notifier.Broadcast(roomID, domain.EventRoomInfoUpdate, room.info, userID)

	e.journal.Record(roomID, domain.EventKindJoined, userID, username)
	slog.Info("user joined room", "room", roomID, "user", userID, "host", p.IsHost, "users", room.info.UserCount)
	return state, nil
}

// RaiseHand toggles the hand of an audience member. Speakers are ignored.
func (e *RoleEngine) RaiseHand(ctx context.Context, roomID, userID string) error {
	room, err := e.lock(roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	p := room.find(userID)
	if p == nil {
		return fmt.Errorf("user %q: %w", userID, domain.ErrNotInRoom)
	}
	if p.IsSpeaker {
		return nil
	}

	p.HandRaised = !p.HandRaised
	e.notifier.Broadcast(roomID, domain.EventUserUpdated, *p, "")
	return nil
}

// Promote moves targetID onto the stage. Only the host may promote.
func (e *RoleEngine) Promote(ctx context.Context, roomID, actingID, targetID string) error {
	room, err := e.lock(roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if room.info.HostID != actingID {
		return fmt.Errorf("promote by %q: %w", actingID, domain.ErrUnauthorized)
	}
	target := room.find(targetID)
	if target == nil {
		return fmt.Errorf("user %q: %w", targetID, domain.ErrNotInRoom)
	}
	if target.IsSpeaker {
		return nil
	}

	target.IsSpeaker = true
	target.HandRaised = false
	target.Position = e.placer.StageSlot()
	room.recount()

	e.notifier.Broadcast(roomID, domain.EventUserUpdated, *target, "")
	e.notifier.Broadcast(roomID, domain.EventRoomInfoUpdate, room.info, "")
	e.journal.Record(roomID, domain.EventKindPromoted, targetID, actingID)
	return nil
}

// Demote sends targetID back to the audience at a fresh crowd slot. The host
// may demote anyone but itself; anyone may step down on their own.
func (e *RoleEngine) Demote(ctx context.Context, roomID, actingID, targetID string) error {
	room, err := e.lock(roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if actingID != room.info.HostID && actingID != targetID {
		return fmt.Errorf("demote by %q: %w", actingID, domain.ErrUnauthorized)
	}
	if targetID == room.info.HostID {
		return fmt.Errorf("demote host %q: %w", targetID, domain.ErrUnauthorized)
	}
	target := room.find(targetID)
	if target == nil {
		return fmt.Errorf("user %q: %w", targetID, domain.ErrNotInRoom)
	}

	target.Position = e.placer.CrowdSlot()
	target.IsSpeaker = false
	target.HandRaised = false
	room.recount()

	e.notifier.Broadcast(roomID, domain.EventUserUpdated, *target, "")
	e.notifier.Broadcast(roomID, domain.EventRoomInfoUpdate, room.info, "")
	e.journal.Record(roomID, domain.EventKindDemoted, targetID, actingID)
	return nil
}

// SetMic records the client's mic flag.
func (e *RoleEngine) SetMic(ctx context.Context, roomID, userID string, active bool) error {
	room, err := e.lock(roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	p := room.find(userID)
	if p == nil {
		return fmt.Errorf("user %q: %w", userID, domain.ErrNotInRoom)
	}
	if p.MicActive == active {
		return nil
	}

	p.MicActive = active
	e.notifier.Broadcast(roomID, domain.EventUserUpdated, *p, "")
	return nil
}

// Leave removes userID from the room. A departing host hands over to the
// first remaining member in join order; the last one out destroys the room.
func (e *RoleEngine) Leave(ctx context.Context, roomID, userID string) error {
	room, err := e.lock(roomID)
	if err != nil {
		return err
	}

	idx := slices.IndexFunc(room.users, func(p *domain.Participant) bool { return p.ID == userID })
	if idx < 0 {
		room.mu.Unlock()
		return fmt.Errorf("user %q: %w", userID, domain.ErrNotInRoom)
	}

	wasHost := room.users[idx].IsHost
	room.users = slices.Delete(room.users, idx, idx+1)
	e.notifier.Unsubscribe(roomID, userID)
	e.journal.Record(roomID, domain.EventKindLeft, userID, "")

	empty := len(room.users) == 0
	if empty {
		room.closed = true
		room.info.HostID = ""
		room.recount()
	} else {
		var heir *domain.Participant
		if wasHost {
			heir = room.users[0]
			heir.IsHost = true
			heir.IsSpeaker = true
			heir.HandRaised = false
			heir.Position = HostSlot
			room.info.HostID = heir.ID
			e.journal.Record(roomID, domain.EventKindHost, heir.ID, userID)
		}
		room.recount()

		e.notifier.Broadcast(roomID, domain.EventUserLeft, userID, "")
		if heir != nil {
			e.notifier.Broadcast(roomID, domain.EventUserUpdated, *heir, "")
		}
		e.notifier.Broadcast(roomID, domain.EventRoomInfoUpdate, room.info, "")
	}
	room.mu.Unlock()

	slog.Info("user left room", "room", roomID, "user", userID, "was_host", wasHost)
	if empty {
		e.rooms.DeleteIfEmpty(roomID)
	}
	return nil
}
