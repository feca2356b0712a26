package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/sawariz0r/3d-voice-room/internal/domain"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	id     string
	cap    int
	frames [][]byte
	closed bool
}

func newFakeConn(id string, capacity int) *fakeConn {
	return &fakeConn{id: id, cap: capacity}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Enqueue(frame []byte, droppable bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if len(c.frames) >= c.cap || (droppable && !hasHeadroom(len(c.frames), c.cap)) {
		return ErrSlowConsumer
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) messages(t *testing.T) []Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, 0, len(c.frames))
	for _, f := range c.frames {
		var m Message
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHub_Broadcast_Skips_Excluded_And_Other_Rooms(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	a, b, c := newFakeConn("a", 8), newFakeConn("b", 8), newFakeConn("c", 8)
	for _, conn := range []*fakeConn{a, b, c} {
		hub.Register(conn)
	}
	hub.Subscribe("room1", "a")
	hub.Subscribe("room1", "b")
	hub.Subscribe("room2", "c")

	// When a voice level is broadcast from A
	hub.Broadcast("room1", domain.EventUserVoiceActivity, domain.VoiceActivity{UserID: "a", Volume: 0.5}, "a")

	// Then only B hears it
	req.Empty(a.messages(t))
	req.Empty(c.messages(t))
	msgs := b.messages(t)
	req.Len(msgs, 1)
	req.Equal(domain.EventUserVoiceActivity, msgs[0].Type)
	req.JSONEq(`{"userId":"a","volume":0.5}`, string(msgs[0].Payload))
}

func TestHub_Send(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	a := newFakeConn("a", 8)
	hub.Register(a)

	req.NoError(hub.Send("a", domain.EventRoomCreated, "abc1234"))
	req.ErrorIs(hub.Send("ghost", domain.EventRoomCreated, "abc1234"), ErrConnNotFound)

	msgs := a.messages(t)
	req.Len(msgs, 1)
	req.JSONEq(`"abc1234"`, string(msgs[0].Payload))
}

func TestHub_Full_Queue(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	slow := newFakeConn("slow", 1)
	hub.Register(slow)
	hub.Subscribe("room1", "slow")
	hub.Broadcast("room1", domain.EventNewMessage, domain.ChatMessage{UserID: "x", Text: "hi"}, "")

	// A dropped voice level keeps the connection
	hub.Broadcast("room1", domain.EventUserVoiceActivity, domain.VoiceActivity{UserID: "x"}, "")
	req.False(slow.isClosed())

	// A dropped state change evicts it
	hub.Broadcast("room1", domain.EventUserUpdated, domain.Participant{ID: "x"}, "")
	req.True(slow.isClosed())
	req.ErrorIs(hub.Send("slow", domain.EventSignal, nil), ErrConnClosed)
}

func TestHub_Voice_Flood_Leaves_Room_For_State_Changes(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	// Given a listener whose writer is stalled
	listener := newWsConn("listener", nil, 8)
	hub.Register(listener)
	hub.Subscribe("room1", "listener")

	// When a burst of voice levels arrives
	for range 8 {
		hub.Broadcast("room1", domain.EventUserVoiceActivity, domain.VoiceActivity{UserID: "x", Volume: 0.9}, "")
	}
	// And then a state change
	hub.Broadcast("room1", domain.EventUserUpdated, domain.Participant{ID: "x", IsSpeaker: true}, "")

	// Then voice filled only half the queue and the state change got through
	req.Len(listener.send, 5)
	var last []byte
	for range 5 {
		last = <-listener.send
	}
	var msg Message
	req.NoError(json.Unmarshal(last, &msg))
	req.Equal(domain.EventUserUpdated, msg.Type)
	select {
	case <-listener.closed:
		t.Fatal("listener was evicted")
	default:
	}
}

func TestHub_Closed_Connection_Is_Not_Evicted_Again(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	gone := newFakeConn("gone", 8)
	hub.Register(gone)
	hub.Subscribe("room1", "gone")
	req.NoError(gone.Close())

	hub.Broadcast("room1", domain.EventUserUpdated, domain.Participant{ID: "x"}, "")

	req.ErrorIs(hub.Send("gone", domain.EventRoomCreated, "abc1234"), ErrConnClosed)
	req.Empty(gone.messages(t))
}

func TestHasHeadroom(t *testing.T) {
	tests := []struct {
		queued, capacity int
		want             bool
	}{
		{queued: 0, capacity: 8, want: true},
		{queued: 3, capacity: 8, want: true},
		{queued: 4, capacity: 8, want: false},
		{queued: 0, capacity: 1, want: true},
		{queued: 1, capacity: 1, want: false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, hasHeadroom(tt.queued, tt.capacity), "%d/%d", tt.queued, tt.capacity)
	}
}

func TestHub_Unregister_Leaves_All_Rooms(t *testing.T) {
	req := require.New(t)
	hub := NewHub()
	a := newFakeConn("a", 8)
	hub.Register(a)
	hub.Subscribe("room1", "a")
	hub.Subscribe("room2", "a")

	hub.Unregister("a")

	req.Empty(hub.Members("room1"))
	req.Empty(hub.Members("room2"))
	req.Zero(hub.Len())
	hub.Broadcast("room1", domain.EventNewMessage, domain.ChatMessage{}, "")
	req.Empty(a.messages(t))
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub()
	a, b := newFakeConn("a", 1), newFakeConn("b", 1)
	hub.Register(a)
	hub.Register(b)

	hub.CloseAll()

	require.True(t, a.isClosed())
	require.True(t, b.isClosed())
}
