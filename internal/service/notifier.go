package service

// Notifier is the room fan-out the services publish through. Broadcast and
// Send must not block on slow receivers: they are called with a room lock held.
type Notifier interface {
	Subscribe(roomID, connID string)
	Unsubscribe(roomID, connID string)
	// Broadcast delivers to every subscriber of roomID except exceptID
	// (empty means nobody is skipped).
	Broadcast(roomID, event string, payload any, exceptID string)
	Send(connID, event string, payload any) error
}
