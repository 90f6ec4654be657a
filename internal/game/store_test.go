package game_test

import (
	"testing"
	"time"

	"github.com/yawuzz/sui-quiz/internal/game"
)

func TestStoreNormalizesCodes(t *testing.T) {
	store := game.NewStore(game.Config{})

	room := store.GetOrCreate(" ab1 ")
	if room == nil {
		t.Fatalf("expected room")
	}
	defer room.Stop()
	if room.Code() != "AB1" {
		t.Fatalf("expected canonical code AB1, got %s", room.Code())
	}
	if again := store.GetOrCreate("Ab1"); again != room {
		t.Fatalf("expected same room for case variants")
	}
	if _, ok := store.Get("ab1"); !ok {
		t.Fatalf("expected lookup to normalize too")
	}
}

func TestStoreGetDoesNotCreate(t *testing.T) {
	store := game.NewStore(game.Config{})
	if _, ok := store.Get("NOPE"); ok {
		t.Fatalf("Get must not create rooms")
	}
	if room := store.GetOrCreate(""); room != nil {
		t.Fatalf("empty code must not create a room")
	}
}

func TestSweepEvictsQuiescedRooms(t *testing.T) {
	store := game.NewStore(game.Config{})
	store.GetOrCreate("IDLE")

	busy := store.GetOrCreate("BUSY")
	s := newSink()
	busy.Subscribe(s)
	// Drain the state broadcast so Subscribe has completed.
	nextEvent(t, s, "state", time.Second)

	time.Sleep(10 * time.Millisecond)
	if n := store.Sweep(time.Millisecond); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := store.Get("IDLE"); ok {
		t.Fatalf("idle room should be gone")
	}
	if _, ok := store.Get("BUSY"); !ok {
		t.Fatalf("subscribed room must survive the sweep")
	}
	busy.Stop()
}
