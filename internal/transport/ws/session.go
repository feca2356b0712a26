package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sawariz0r/3d-voice-room/internal/domain"

	"github.com/gorilla/websocket"
)

type handlerFunc func(s *session, ctx context.Context, payload json.RawMessage) error

var handlers = map[string]handlerFunc{
	domain.EventGetRooms:       (*session).getRooms,
	domain.EventCreateRoom:     (*session).createRoom,
	domain.EventJoinRoom:       (*session).joinRoom,
	domain.EventLeaveRoom:      (*session).leaveRoom,
	domain.EventSendMessage:    (*session).sendMessage,
	domain.EventVoiceActivity:  (*session).voiceActivity,
	domain.EventRaiseHand:      (*session).raiseHand,
	domain.EventPromoteUser:    (*session).promoteUser,
	domain.EventMoveToAudience: (*session).moveToAudience,
	domain.EventSetMic:         (*session).setMic,
	domain.EventSignal:         (*session).signal,
}

// session binds one connection to at most one room membership. Handlers and
// cleanup all run on the reader goroutine, so roomID needs no lock.
type session struct {
	srv    *Server
	conn   *wsConn
	id     string
	roomID string
	once   sync.Once
}

func newSession(srv *Server, c *wsConn) *session {
	return &session{srv: srv, conn: c, id: c.id}
}

func (s *session) readLoop(ctx context.Context) {
	c := s.conn.conn
	pongWait := 2 * s.srv.opts.PingEvery

	c.SetReadLimit(s.srv.opts.ReadLimit)
	_ = c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("ws read failed", "conn", s.id, "err", err)
			}
			return
		}
		_ = c.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			slog.Debug("ws malformed frame", "conn", s.id, "err", err)
			continue
		}
		if !s.dispatch(ctx, msg) {
			return
		}
	}
}

// dispatch runs one handler. It reports false when the handler panicked and
// the connection has to go.
func (s *session) dispatch(ctx context.Context, msg Message) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("ws handler panic", "conn", s.id, "event", msg.Type, "panic", rec, "stack", string(debug.Stack()))
			ok = false
		}
	}()

	h, found := handlers[msg.Type]
	if !found {
		s.fail(msg.Type, fmt.Errorf("%w: unknown event %q", domain.ErrValidation, msg.Type))
		return true
	}
	if err := h(s, ctx, msg.Payload); err != nil {
		s.fail(msg.Type, err)
	}
	return true
}

// fail reports an error to the caller only. Authorization and delivery
// failures stay silent.
func (s *session) fail(event string, err error) {
	var code string
	switch {
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrUnreachable):
		slog.Debug("ws request ignored", "conn", s.id, "event", event, "err", err)
		return
	case errors.Is(err, domain.ErrValidation):
		code = domain.ErrorCodeInvalid
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrNotInRoom):
		code = domain.ErrorCodeNotFound
	default:
		slog.Error("ws request failed", "conn", s.id, "event", event, "err", err)
		code = domain.ErrorCodeInternal
	}
	s.reply(domain.EventError, domain.ErrorPayload{Code: code, Message: err.Error()})
}

func (s *session) reply(event string, payload any) {
	if err := s.srv.hub.Send(s.id, event, payload); err != nil {
		slog.Debug("ws reply failed", "conn", s.id, "event", event, "err", err)
	}
}

// cleanup leaves the current room and drops the connection. It runs once no
// matter how the connection ended.
func (s *session) cleanup(ctx context.Context) {
	s.once.Do(func() {
		ctx := context.WithoutCancel(ctx)
		if s.roomID != "" {
			if err := s.srv.svc.Roles.Leave(ctx, s.roomID, s.id); err != nil {
				slog.Debug("ws leave on close failed", "conn", s.id, "room", s.roomID, "err", err)
			}
			s.roomID = ""
		}
		s.srv.hub.Unregister(s.id)
		if err := s.conn.Close(); err != nil {
			slog.Debug("ws close failed", "conn", s.id, "err", err)
		}
		slog.Info("ws disconnected", "conn", s.id)
	})
}

func decode[T any](s *session, raw json.RawMessage) (T, error) {
	var v T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}
	if err := s.srv.validate.Struct(v); err != nil {
		return v, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return v, nil
}

// --- handlers ---

func (s *session) getRooms(ctx context.Context, _ json.RawMessage) error {
	s.reply(domain.EventRoomList, s.srv.svc.Rooms.ListRooms())
	return nil
}

func (s *session) createRoom(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[createRoomPayload](s, raw)
	if err != nil {
		return err
	}
	id, err := s.srv.svc.Rooms.CreateRoom(ctx, p.Title, p.Language, p.Topic, s.id)
	if err != nil {
		return err
	}
	s.reply(domain.EventRoomCreated, id)
	return nil
}

func (s *session) joinRoom(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[joinRoomPayload](s, raw)
	if err != nil {
		return err
	}
	if s.roomID != "" && s.roomID != p.RoomID {
		if err := s.srv.svc.Roles.Leave(ctx, s.roomID, s.id); err != nil {
			slog.Debug("ws leave before join failed", "conn", s.id, "room", s.roomID, "err", err)
		}
		s.roomID = ""
	}
	if _, err := s.srv.svc.Roles.Join(ctx, p.RoomID, s.id, p.Username); err != nil {
		return err
	}
	s.roomID = p.RoomID
	return nil
}

func (s *session) leaveRoom(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[roomPayload](s, raw)
	if err != nil {
		return err
	}
	if p.RoomID != s.roomID {
		return fmt.Errorf("room %q: %w", p.RoomID, domain.ErrNotInRoom)
	}
	s.roomID = ""
	return s.srv.svc.Roles.Leave(ctx, p.RoomID, s.id)
}

func (s *session) sendMessage(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[sendMessagePayload](s, raw)
	if err != nil {
		return err
	}
	_, err = s.srv.svc.Chat.Send(ctx, p.RoomID, s.id, p.Message)
	return err
}

func (s *session) voiceActivity(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[voiceActivityPayload](s, raw)
	if err != nil {
		return err
	}
	return s.srv.svc.Chat.VoiceActivity(ctx, p.RoomID, s.id, p.Volume)
}

func (s *session) raiseHand(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[roomPayload](s, raw)
	if err != nil {
		return err
	}
	return s.srv.svc.Roles.RaiseHand(ctx, p.RoomID, s.id)
}

func (s *session) promoteUser(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[targetUserPayload](s, raw)
	if err != nil {
		return err
	}
	return s.srv.svc.Roles.Promote(ctx, p.RoomID, s.id, p.UserID)
}

func (s *session) moveToAudience(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[targetUserPayload](s, raw)
	if err != nil {
		return err
	}
	return s.srv.svc.Roles.Demote(ctx, p.RoomID, s.id, p.UserID)
}

func (s *session) setMic(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[setMicPayload](s, raw)
	if err != nil {
		return err
	}
	return s.srv.svc.Roles.SetMic(ctx, p.RoomID, s.id, p.Active)
}

func (s *session) signal(ctx context.Context, raw json.RawMessage) error {
	p, err := decode[signalPayload](s, raw)
	if err != nil {
		return err
	}
	return s.srv.svc.Signals.Relay(ctx, domain.SignalEnvelope{
		SenderID: s.id,
		TargetID: p.Target,
		Payload:  p.Signal,
	})
}
