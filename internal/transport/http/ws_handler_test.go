package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yawuzz/sui-quiz/internal/domain"
	"github.com/yawuzz/sui-quiz/internal/game"
	"github.com/yawuzz/sui-quiz/internal/infra/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rooms := game.NewStore(game.Config{RevealDelay: 100 * time.Millisecond})
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleCatalog()), time.Minute)
	wsHandler := NewWSHandler(rooms, quizzes)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %v: %v", msg["type"], err)
	}
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json waiting for %q: %v", typ, err)
		}
		if msg["type"] == typ {
			return msg
		}
	}
}

func players(t *testing.T, event map[string]any, key string) []map[string]any {
	t.Helper()
	raw, ok := event[key].([]any)
	if !ok {
		t.Fatalf("event has no %q: %v", key, event)
	}
	out := make([]map[string]any, len(raw))
	for i, e := range raw {
		out[i] = e.(map[string]any)
	}
	return out
}

func TestFullGameOverWebSocket(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	send(t, host, map[string]any{"type": "subscribe", "room": "ab1"})
	readUntil(t, host, "state")

	send(t, host, map[string]any{
		"type": "load_questions",
		"room": "ab1",
		"questions": []map[string]any{{
			"id": "q1", "text": "pick b", "options": []string{"a", "b", "c", "d"},
			"correctIndex": 1, "points": 100, "durationSec": 5,
		}},
	})
	readUntil(t, host, "state")

	p1 := dial(t, server)
	send(t, p1, map[string]any{"type": "subscribe", "room": "AB1"})
	send(t, p1, map[string]any{"type": "join", "room": "AB1", "name": "Alice", "address": "0xabc"})

	p2 := dial(t, server)
	send(t, p2, map[string]any{"type": "subscribe", "room": "ab1"})
	send(t, p2, map[string]any{"type": "join", "room": "ab1", "name": "Bob"})

	// Wait until the host sees both players in the lobby.
	for {
		state := readUntil(t, host, "state")
		if len(players(t, state, "players")) == 2 {
			break
		}
	}

	send(t, host, map[string]any{"type": "start", "room": "ab1"})

	q1 := readUntil(t, p1, "question")
	if got := q1["room"]; got != "AB1" {
		t.Fatalf("expected canonical room code AB1, got %v", got)
	}
	readUntil(t, p2, "question")

	send(t, p1, map[string]any{"type": "answer", "room": "ab1", "index": 0, "choice": 1})
	send(t, p2, map[string]any{"type": "answer", "room": "ab1", "index": 0, "choice": 0})

	results := readUntil(t, host, "results")
	entries := players(t, results, "leaderboard")
	if len(entries) != 2 {
		t.Fatalf("expected 2 leaderboard entries, got %v", entries)
	}
	if entries[0]["name"] != "Alice" || entries[0]["score"].(float64) != 100 {
		t.Fatalf("expected Alice leading with 100, got %v", entries[0])
	}
	if entries[0]["addr"] != "0xabc" {
		t.Fatalf("expected wallet address passthrough, got %v", entries[0])
	}

	final := readUntil(t, host, "final")
	if len(players(t, final, "leaderboard")) != 2 {
		t.Fatalf("expected final leaderboard, got %v", final)
	}
}

func TestLoadQuestionsFromCatalog(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	send(t, host, map[string]any{"type": "subscribe", "room": "CAT1"})
	readUntil(t, host, "state")

	send(t, host, map[string]any{"type": "load_questions", "room": "CAT1", "quizId": "quiz-1"})
	readUntil(t, host, "state")
	send(t, host, map[string]any{"type": "join", "room": "CAT1", "name": "Solo"})
	send(t, host, map[string]any{"type": "start", "room": "CAT1"})

	q := readUntil(t, host, "question")
	if q["text"] != "What is 2 + 2?" {
		t.Fatalf("expected catalog question, got %v", q["text"])
	}
	send(t, host, map[string]any{"type": "answer", "room": "CAT1", "index": 0, "choice": 1})

	results := readUntil(t, host, "results")
	entries := players(t, results, "leaderboard")
	if entries[0]["score"].(float64) != 10 {
		t.Fatalf("expected 10 points, got %v", entries[0])
	}
}

func TestDisconnectIsImplicitLeave(t *testing.T) {
	server := newTestServer(t)

	host := dial(t, server)
	send(t, host, map[string]any{"type": "subscribe", "room": "DROP"})
	readUntil(t, host, "state")

	p1 := dial(t, server)
	send(t, p1, map[string]any{"type": "subscribe", "room": "DROP"})
	send(t, p1, map[string]any{"type": "join", "room": "DROP", "name": "Ghost"})

	for {
		state := readUntil(t, host, "state")
		if len(players(t, state, "players")) == 1 {
			break
		}
	}

	p1.Close()

	for {
		state := readUntil(t, host, "state")
		if len(players(t, state, "players")) == 0 {
			return
		}
	}
}

func TestMalformedFramesAreDropped(t *testing.T) {
	server := newTestServer(t)

	conn := dial(t, server)
	send(t, conn, map[string]any{"type": "subscribe", "room": "JUNK"})
	readUntil(t, conn, "state")

	// None of these may kill the connection or reach the engine.
	_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	send(t, conn, map[string]any{"room": "JUNK"})                                              // missing type
	send(t, conn, map[string]any{"type": "answer", "room": "JUNK", "index": 0})                // missing choice
	send(t, conn, map[string]any{"type": "answer", "room": "JUNK", "index": "x", "choice": 1}) // non-numeric index
	send(t, conn, map[string]any{"type": "start", "room": "JUNK"})                             // no questions loaded

	// The connection still works.
	send(t, conn, map[string]any{"type": "join", "room": "JUNK", "name": "Still here"})
	state := readUntil(t, conn, "state")
	if got := players(t, state, "players"); len(got) != 1 || got[0]["name"] != "Still here" {
		t.Fatalf("expected join to still work, got %v", got)
	}
}

func sampleCatalog() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Arithmetic",
			Questions: []domain.Question{{
				ID:           "q1",
				Text:         "What is 2 + 2?",
				Options:      []string{"3", "4", "5"},
				CorrectIndex: 1,
				Points:       10,
				DurationSec:  5,
			}},
		},
	}
}
