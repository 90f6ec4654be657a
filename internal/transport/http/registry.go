package http

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Registry tracks, per connection, the room it is subscribed to (last
// subscribe wins) and the player identity assigned on join. It is the
// only transport-side state; room state itself lives in the engine.
type Registry struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]*binding
}

type binding struct {
	room     string
	playerID string
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[*websocket.Conn]*binding)}
}

// Subscribe binds conn to a room. Moving to a different room replaces
// the binding and drops any identity; re-subscribing to the same room is
// a no-op so a duplicate subscribe cannot orphan a joined player.
func (r *Registry) Subscribe(conn *websocket.Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.conns[conn]; ok && b.room == room {
		return
	}
	r.conns[conn] = &binding{room: room}
}

// Identify assigns a player identity to a subscribed connection.
func (r *Registry) Identify(conn *websocket.Conn, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.conns[conn]; ok {
		b.playerID = playerID
	}
}

// ClearIdentity drops the player identity but keeps the subscription.
func (r *Registry) ClearIdentity(conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.conns[conn]; ok {
		b.playerID = ""
	}
}

// RoomOf returns the room conn is subscribed to.
func (r *Registry) RoomOf(conn *websocket.Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.conns[conn]
	if !ok || b.room == "" {
		return "", false
	}
	return b.room, true
}

// PlayerOf returns the player identity bound to conn.
func (r *Registry) PlayerOf(conn *websocket.Conn) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.conns[conn]
	if !ok || b.playerID == "" {
		return "", false
	}
	return b.playerID, true
}

// Forget removes the connection and returns its final binding. The first
// call wins; later calls report ok=false, which keeps connection-close
// cleanup exactly-once.
func (r *Registry) Forget(conn *websocket.Conn) (room, playerID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, found := r.conns[conn]
	if !found {
		return "", "", false
	}
	delete(r.conns, conn)
	return b.room, b.playerID, true
}
