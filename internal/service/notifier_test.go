package service

import (
	"errors"
	"fmt"
	"sync"
)

type delivery struct {
	Room    string
	To      string
	Event   string
	Payload any
	Except  string
}

// fakeNotifier records every delivery instead of writing to sockets.
type fakeNotifier struct {
	mu         sync.Mutex
	subs       map[string]map[string]bool
	online     map[string]bool
	sends      []delivery
	broadcasts []delivery
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		subs:   make(map[string]map[string]bool),
		online: make(map[string]bool),
	}
}

func (n *fakeNotifier) connect(ids ...string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range ids {
		n.online[id] = true
	}
}

func (n *fakeNotifier) Subscribe(roomID, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[roomID] == nil {
		n.subs[roomID] = make(map[string]bool)
	}
	n.subs[roomID][connID] = true
}

func (n *fakeNotifier) Unsubscribe(roomID, connID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.subs[roomID], connID)
}

func (n *fakeNotifier) Broadcast(roomID, event string, payload any, exceptID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, delivery{Room: roomID, Event: event, Payload: payload, Except: exceptID})
}

func (n *fakeNotifier) Send(connID, event string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.online[connID] {
		return fmt.Errorf("conn %s: %w", connID, errors.New("offline"))
	}
	n.sends = append(n.sends, delivery{To: connID, Event: event, Payload: payload})
	return nil
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = nil
	n.broadcasts = nil
}

func (n *fakeNotifier) broadcastEvents() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.broadcasts))
	for _, b := range n.broadcasts {
		out = append(out, b.Event)
	}
	return out
}

func (n *fakeNotifier) lastBroadcast() delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.broadcasts) == 0 {
		return delivery{}
	}
	return n.broadcasts[len(n.broadcasts)-1]
}

func (n *fakeNotifier) subscribed(roomID, connID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subs[roomID][connID]
}

func sequentialIDs(ids ...string) IDGenerator {
	var (
		mu sync.Mutex
		n  int
	)
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		defer func() { n++ }()
		if n < len(ids) {
			return ids[n], nil
		}
		return fmt.Sprintf("room%03d", n), nil
	}
}
