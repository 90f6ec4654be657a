package game

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// Store maps room codes to live rooms. Rooms are created lazily on first
// subscribe and swept once idle; codes are case-insensitive with an
// uppercased canonical form.
type Store struct {
	cfg   Config
	now   func() time.Time
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewStore(cfg Config) *Store {
	return &Store{
		cfg:   cfg,
		now:   time.Now,
		rooms: make(map[string]*Room),
	}
}

// NormalizeCode maps a client-typed room code onto its canonical form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GetOrCreate returns the room for code, creating it if unseen.
// Returns nil for an empty code.
func (s *Store) GetOrCreate(code string) *Room {
	code = NormalizeCode(code)
	if code == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[code]; ok {
		return room
	}
	room := NewRoom(code, s.cfg)
	s.rooms[code] = room
	log.Printf("[game] room %s created", code)
	return room
}

// Get returns an existing room without creating one; anything but
// subscribe references rooms this way.
func (s *Store) Get(code string) (*Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[NormalizeCode(code)]
	return room, ok
}

// Sweep stops and removes rooms with no subscribers that have been idle
// longer than the window. Returns the number of rooms evicted.
func (s *Store) Sweep(idle time.Duration) int {
	now := s.now()

	s.mu.Lock()
	var evicted []*Room
	for code, room := range s.rooms {
		if room.Quiesced(idle, now) {
			delete(s.rooms, code)
			evicted = append(evicted, room)
		}
	}
	s.mu.Unlock()

	for _, room := range evicted {
		room.Stop()
		log.Printf("[game] room %s evicted after %s idle", room.Code(), idle)
	}
	return len(evicted)
}

// Janitor sweeps periodically until ctx is canceled.
func (s *Store) Janitor(ctx context.Context, every, idle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(idle)
		}
	}
}
