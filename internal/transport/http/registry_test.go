package http

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestRegistryBindings(t *testing.T) {
	reg := NewRegistry()
	conn := &websocket.Conn{}

	if _, ok := reg.RoomOf(conn); ok {
		t.Fatalf("unknown conn must have no room")
	}

	reg.Subscribe(conn, "AB1")
	if room, ok := reg.RoomOf(conn); !ok || room != "AB1" {
		t.Fatalf("expected AB1, got %q ok=%v", room, ok)
	}

	reg.Identify(conn, "p1")
	if id, ok := reg.PlayerOf(conn); !ok || id != "p1" {
		t.Fatalf("expected p1, got %q ok=%v", id, ok)
	}

	// Re-subscribing to the same room keeps the identity.
	reg.Subscribe(conn, "AB1")
	if id, ok := reg.PlayerOf(conn); !ok || id != "p1" {
		t.Fatalf("same-room resubscribe must keep identity, got %q ok=%v", id, ok)
	}

	// Moving to a different room replaces the binding and drops the identity.
	reg.Subscribe(conn, "XY9")
	if room, _ := reg.RoomOf(conn); room != "XY9" {
		t.Fatalf("last subscribe must win, got %q", room)
	}
	if _, ok := reg.PlayerOf(conn); ok {
		t.Fatalf("identity must not survive a re-subscribe")
	}

	reg.Identify(conn, "p2")
	reg.ClearIdentity(conn)
	if _, ok := reg.PlayerOf(conn); ok {
		t.Fatalf("identity must clear on leave")
	}
}

func TestRegistryForgetIsExactlyOnce(t *testing.T) {
	reg := NewRegistry()
	conn := &websocket.Conn{}

	reg.Subscribe(conn, "AB1")
	reg.Identify(conn, "p1")

	room, playerID, ok := reg.Forget(conn)
	if !ok || room != "AB1" || playerID != "p1" {
		t.Fatalf("first forget should return the binding, got %q %q %v", room, playerID, ok)
	}
	if _, _, ok := reg.Forget(conn); ok {
		t.Fatalf("second forget must report ok=false")
	}
	if _, ok := reg.RoomOf(conn); ok {
		t.Fatalf("forgotten conn must be unbound")
	}
}
