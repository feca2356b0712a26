package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Conn is what the hub needs from a live connection.
type Conn interface {
	ID() string
	// Enqueue hands a frame to the connection's writer without blocking. It
	// returns ErrConnClosed once the connection is gone and ErrSlowConsumer
	// when the frame does not fit. Droppable frames are only accepted while
	// at least half of the queue is free, so state changes keep room.
	Enqueue(frame []byte, droppable bool) error
	Close() error
}

type wsConn struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newWsConn(id string, c *websocket.Conn, buffer int) *wsConn {
	return &wsConn{
		id:     id,
		conn:   c,
		send:   make(chan []byte, buffer),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Enqueue(frame []byte, droppable bool) error {
	select {
	case <-c.closed:
		return ErrConnClosed
	default:
	}
	if droppable && !hasHeadroom(len(c.send), cap(c.send)) {
		return ErrSlowConsumer
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// hasHeadroom reports whether a queue holding queued of capacity frames may
// still take a droppable frame.
func hasHeadroom(queued, capacity int) bool {
	return queued < (capacity+1)/2
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

// shutdown says goodbye with a close frame before dropping the socket.
func (c *wsConn) shutdown(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.Close()
}
