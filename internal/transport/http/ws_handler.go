package http

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yawuzz/sui-quiz/internal/domain"
	"github.com/yawuzz/sui-quiz/internal/game"
)

// QuizRepository loads quiz content from the catalog (cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error)
}

// WSHandler is the ingress dispatcher: it owns the upgrade, parses
// inbound frames, resolves the room through the registry, and routes to
// room operations. Invalid or stale frames are dropped, never answered.
type WSHandler struct {
	rooms    *game.Store
	quizzes  QuizRepository
	registry *Registry
	upgrader websocket.Upgrader
}

func NewWSHandler(rooms *game.Store, quizzes QuizRepository) *WSHandler {
	return &WSHandler{
		rooms:    rooms,
		quizzes:  quizzes,
		registry: NewRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// client adapts one WebSocket connection to a game.Sink. Frames are
// queued to a writer goroutine so the room never blocks on a slow
// socket; a full queue drops the subscriber.
type client struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan []byte, 32),
		done: make(chan struct{}),
	}
}

// Send implements game.Sink. Never blocks.
func (c *client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

func (c *client) writePump() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		}
	}
}

// ServeWS upgrades the request and runs the connection's read loop until
// the peer goes away. Disconnection is an implicit leave.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := newClient(conn)
	go c.writePump()
	defer h.teardown(conn, c)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, ok := decodeInbound(data)
		if !ok {
			continue
		}
		h.dispatch(r.Context(), conn, c, msg)
	}
}

// teardown runs exactly once per connection close: the registry hands
// back the final binding on the first Forget only, so a racing janitor
// or duplicate close cannot double-leave the player.
func (h *WSHandler) teardown(conn *websocket.Conn, c *client) {
	c.close()
	roomCode, playerID, ok := h.registry.Forget(conn)
	if !ok {
		return
	}
	room, found := h.rooms.Get(roomCode)
	if !found {
		return
	}
	if playerID != "" {
		room.Leave(playerID)
	}
	room.Unsubscribe(c)
}

func (h *WSHandler) dispatch(ctx context.Context, conn *websocket.Conn, c *client, msg inbound) {
	if msg.Type == "subscribe" {
		h.subscribe(conn, c, msg.Room)
		return
	}

	// Everything else resolves its room via the registry; the frame's own
	// room field is trusted only for subscribe. Unknown rooms are never
	// created here.
	roomCode, ok := h.registry.RoomOf(conn)
	if !ok {
		return
	}
	room, found := h.rooms.Get(roomCode)
	if !found {
		return
	}

	switch msg.Type {
	case "load_questions":
		h.loadQuestions(ctx, room, msg)
	case "join":
		playerID := room.Join(msg.Name, msg.walletAddress())
		if playerID != "" {
			h.registry.Identify(conn, playerID)
		}
	case "leave":
		if playerID, identified := h.registry.PlayerOf(conn); identified {
			h.registry.ClearIdentity(conn)
			room.Leave(playerID)
		}
	case "start":
		room.Start()
	case "answer":
		if playerID, identified := h.registry.PlayerOf(conn); identified {
			room.Answer(playerID, *msg.Index, *msg.Choice)
		}
	case "end":
		room.End()
	}
}

// subscribe moves the connection onto a room, leaving any previous one.
func (h *WSHandler) subscribe(conn *websocket.Conn, c *client, code string) {
	room := h.rooms.GetOrCreate(code)
	if room == nil {
		return
	}
	if prevCode, was := h.registry.RoomOf(conn); was && prevCode != room.Code() {
		if prev, found := h.rooms.Get(prevCode); found {
			if playerID, identified := h.registry.PlayerOf(conn); identified {
				prev.Leave(playerID)
			}
			prev.Unsubscribe(c)
		}
	}
	h.registry.Subscribe(conn, room.Code())
	room.Subscribe(c)
}

// loadQuestions accepts either an inline batch or a catalog reference.
func (h *WSHandler) loadQuestions(ctx context.Context, room *game.Room, msg inbound) {
	if msg.QuizID != "" {
		quiz, err := h.quizzes.GetQuiz(ctx, msg.QuizID)
		if err != nil {
			log.Printf("ws load quiz %q: %v", msg.QuizID, err)
			return
		}
		room.LoadQuestions(quiz.Questions)
		return
	}
	if qs, ok := msg.questionBatch(); ok {
		room.LoadQuestions(qs)
	}
}
