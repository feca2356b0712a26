package ws

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sawariz0r/3d-voice-room/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type RoomSvc interface {
	CreateRoom(ctx context.Context, title, language, topic, creatorID string) (string, error)
	ListRooms() []domain.RoomInfo
}

type RoleSvc interface {
	Join(ctx context.Context, roomID, userID, username string) (domain.RoomState, error)
	RaiseHand(ctx context.Context, roomID, userID string) error
	Promote(ctx context.Context, roomID, actingID, targetID string) error
	Demote(ctx context.Context, roomID, actingID, targetID string) error
	SetMic(ctx context.Context, roomID, userID string, active bool) error
	Leave(ctx context.Context, roomID, userID string) error
}

type ChatSvc interface {
	Send(ctx context.Context, roomID, userID, text string) (domain.ChatMessage, error)
	VoiceActivity(ctx context.Context, roomID, userID string, volume float64) error
}

type SignalSvc interface {
	Relay(ctx context.Context, env domain.SignalEnvelope) error
}

// TokenVerifier checks an access token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

type Services struct {
	Rooms   RoomSvc
	Roles   RoleSvc
	Chat    ChatSvc
	Signals SignalSvc
}

type Options struct {
	PingEvery      time.Duration
	SendBuffer     int
	ReadLimit      int64
	AllowedOrigins []string
	// Verifier gates the upgrade on a valid access_token when set.
	Verifier TokenVerifier
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	svc      Services
	validate *validator.Validate
	opts     Options

	sessions sync.WaitGroup
}

func NewServer(hub *Hub, svc Services, opts Options) *Server {
	if opts.PingEvery <= 0 {
		opts.PingEvery = 15 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}

	s := &Server{
		hub:      hub,
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 || slices.Contains(s.opts.AllowedOrigins, "*") {
		return true
	}
	return slices.Contains(s.opts.AllowedOrigins, r.Header.Get("Origin"))
}

// WS endpoint: GET /ws[?access_token=...]
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	var subject string
	if s.opts.Verifier != nil {
		token := strings.TrimSpace(r.URL.Query().Get("access_token"))
		if token == "" {
			http.Error(w, "missing access_token", http.StatusUnauthorized)
			return
		}
		sub, err := s.opts.Verifier.Verify(token)
		if err != nil {
			slog.Debug("ws token rejected", "err", err)
			http.Error(w, "invalid access_token", http.StatusUnauthorized)
			return
		}
		subject = sub
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	s.sessions.Add(1)
	defer s.sessions.Done()

	c := newWsConn(uuid.NewString(), conn, s.opts.SendBuffer)
	s.hub.Register(c)
	slog.Info("ws connected", "conn", c.id, "subject", subject, "remote", r.RemoteAddr)

	go s.writeLoop(c)

	sess := newSession(s, c)
	if err := s.hub.Send(c.id, domain.EventWelcome, domain.Welcome{ID: c.id}); err != nil {
		slog.Debug("ws send welcome failed", "conn", c.id, "err", err)
	}

	sess.readLoop(r.Context())
	sess.cleanup(r.Context())
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.opts.PingEvery)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				slog.Debug("ws write failed", "conn", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.Debug("ws ping failed", "conn", c.id, "err", err)
				_ = c.Close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// Shutdown closes every connection and waits for their sessions to clean up
// or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
