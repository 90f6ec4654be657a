package game

import (
	"encoding/json"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yawuzz/sui-quiz/internal/domain"
)

// Sink is one subscriber of a room's event stream. Send must not block;
// it reports false when the subscriber can no longer accept frames, which
// removes it from the room.
type Sink interface {
	Send(data []byte) bool
}

// Config tunes per-room timing.
type Config struct {
	// RevealDelay is how long results stay on screen before the next
	// question opens. Zero means the 5s default.
	RevealDelay time.Duration
}

const defaultRevealDelay = 5 * time.Second

func (c Config) revealDelay() time.Duration {
	if c.RevealDelay <= 0 {
		return defaultRevealDelay
	}
	return c.RevealDelay
}

type phase int

const (
	phaseIdle phase = iota
	phaseRunning
	phaseRevealing
	phaseEnded
)

type player struct {
	id    string
	name  string
	addr  string
	score int
	seq   int // join order, leaderboard tie-break
}

type answer struct {
	choice      int
	submittedAt time.Time
}

// Room is one quiz session. All state below the cmds channel is owned by
// the run goroutine; external callers reach it only through commands, so
// the engine needs no locks and two rooms never contend.
type Room struct {
	code string
	cfg  Config

	cmds chan func()
	stop chan struct{}
	done chan struct{}

	// Mirrors for the store janitor, written from the run loop only.
	lastActive atomic.Int64
	attached   atomic.Int32

	subscribers map[Sink]struct{}
	questions   []domain.Question
	players     map[string]*player
	joinSeq     int
	phase       phase
	current     int
	deadline    time.Time
	answers     map[string]answer

	// epoch increments on every question transition; timer callbacks carry
	// the epoch they were armed under and fire into nothing if it moved on.
	epoch int
	timer *time.Timer

	now   func() time.Time
	newID func() string
}

// NewRoom creates a room and starts its goroutine.
func NewRoom(code string, cfg Config) *Room {
	return NewRoomWithClock(code, cfg, time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(code string, cfg Config, now func() time.Time) *Room {
	r := &Room{
		code:        code,
		cfg:         cfg,
		cmds:        make(chan func()),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		subscribers: make(map[Sink]struct{}),
		players:     make(map[string]*player),
		phase:       phaseIdle,
		current:     -1,
		answers:     make(map[string]answer),
		now:         now,
		newID:       uuid.NewString,
	}
	r.lastActive.Store(now().UnixNano())
	go r.run()
	return r
}

// Code returns the room's canonical (uppercased) code.
func (r *Room) Code() string { return r.code }

// Stop terminates the room goroutine and cancels any pending timer.
// Safe to call once; used by the store janitor.
func (r *Room) Stop() {
	close(r.stop)
	<-r.done
}

// Quiesced reports whether the room has no subscribers and has been idle
// longer than the given window.
func (r *Room) Quiesced(idle time.Duration, now time.Time) bool {
	if r.attached.Load() > 0 {
		return false
	}
	return now.Sub(time.Unix(0, r.lastActive.Load())) > idle
}

func (r *Room) run() {
	for {
		select {
		case fn := <-r.cmds:
			fn()
			r.lastActive.Store(r.now().UnixNano())
		case <-r.stop:
			r.cancelTimer()
			close(r.done)
			return
		}
	}
}

// do runs fn on the room goroutine. Commands sent to a stopped room are
// discarded; the sender is either the janitor racing a late client or a
// late timer, and both are safe to drop.
func (r *Room) do(fn func()) {
	select {
	case r.cmds <- fn:
	case <-r.done:
	}
}

// Subscribe attaches a sink to the room's event stream and rebroadcasts
// the current lobby state to everyone.
func (r *Room) Subscribe(s Sink) {
	r.do(func() {
		r.subscribers[s] = struct{}{}
		r.attached.Store(int32(len(r.subscribers)))
		r.broadcastState()
	})
}

// Unsubscribe detaches a sink. Leaving the player (if any) is the
// caller's responsibility via Leave.
func (r *Room) Unsubscribe(s Sink) {
	r.do(func() {
		delete(r.subscribers, s)
		r.attached.Store(int32(len(r.subscribers)))
	})
}

// LoadQuestions replaces the room's question set wholesale. The batch is
// rejected whole if any entry fails validation. Ignored while a quiz is
// in flight; scores reset on start, not here.
func (r *Room) LoadQuestions(qs []domain.Question) {
	r.do(func() {
		if r.phase == phaseRunning || r.phase == phaseRevealing {
			return
		}
		if err := domain.ValidateQuestions(qs); err != nil {
			log.Printf("[game] %s rejected question batch: %v", r.code, err)
			return
		}
		r.questions = qs
		r.phase = phaseIdle
		r.current = -1
		r.deadline = time.Time{}
		r.answers = make(map[string]answer)
		log.Printf("[game] %s loaded %d questions", r.code, len(qs))
		r.broadcastState()
	})
}

// Join adds a player and returns the generated player ID. The address is
// an opaque wallet passthrough. Returns "" if the room is stopped.
func (r *Room) Join(name, addr string) string {
	reply := make(chan string, 1)
	r.do(func() {
		if name == "" {
			name = "Player"
		}
		id := r.newID()
		r.players[id] = &player{id: id, name: name, addr: addr, seq: r.joinSeq}
		r.joinSeq++
		log.Printf("[game] %s join %s (%d players)", r.code, name, len(r.players))
		r.broadcastState()
		reply <- id
	})
	select {
	case id := <-reply:
		return id
	case <-r.done:
		return ""
	}
}

// Leave removes a player. If the removal leaves every remaining player
// having answered the open question, the question closes early.
func (r *Room) Leave(playerID string) {
	r.do(func() {
		if _, ok := r.players[playerID]; !ok {
			return
		}
		delete(r.players, playerID)
		delete(r.answers, playerID)
		log.Printf("[game] %s leave (%d players)", r.code, len(r.players))
		r.broadcastState()
		r.maybeCloseEarly()
	})
}

// Start begins the quiz at question 0 with all scores reset. Dropped if
// no questions are loaded or a quiz is already in flight.
func (r *Room) Start() {
	r.do(func() {
		if len(r.questions) == 0 {
			return
		}
		if r.phase == phaseRunning || r.phase == phaseRevealing {
			return
		}
		for _, p := range r.players {
			p.score = 0
		}
		r.current = -1
		r.phase = phaseRunning
		log.Printf("[game] %s start (%d questions, %d players)", r.code, len(r.questions), len(r.players))
		r.broadcastState()
		r.openNext()
	})
}

// Answer records a player's choice for the open question. First write
// wins; stale indexes, late submissions, and unknown players are dropped
// silently. Closes the question early once every player has answered.
func (r *Room) Answer(playerID string, index, choice int) {
	r.do(func() {
		if r.phase != phaseRunning || index != r.current {
			return
		}
		if r.now().After(r.deadline) {
			return
		}
		if _, ok := r.players[playerID]; !ok {
			return
		}
		if _, dup := r.answers[playerID]; dup {
			return
		}
		r.answers[playerID] = answer{choice: choice, submittedAt: r.now()}
		r.maybeCloseEarly()
	})
}

// End force-finalizes the quiz with scores as they stand.
func (r *Room) End() {
	r.do(func() {
		log.Printf("[game] %s end", r.code)
		r.finalize()
	})
}

// --- run-loop internals; every method below executes on the room goroutine ---

func (r *Room) maybeCloseEarly() {
	if r.phase != phaseRunning {
		return
	}
	if len(r.players) > 0 && len(r.answers) >= len(r.players) {
		r.closeQuestion()
	}
}

func (r *Room) openNext() {
	r.epoch++
	r.cancelTimer()
	r.current++
	r.answers = make(map[string]answer)

	if r.current >= len(r.questions) {
		r.finalize()
		return
	}

	q := r.questions[r.current]
	r.phase = phaseRunning
	d := time.Duration(q.DurationSec) * time.Second
	r.deadline = r.now().Add(d)

	r.broadcast(QuestionEvent{
		Type:    "question",
		Room:    r.code,
		Index:   r.current,
		Text:    q.Text,
		Options: q.Options,
		Points:  q.Points,
		EndsAt:  r.deadline.UnixMilli(),
	})
	r.armTimer(d, r.closeQuestion)
}

// closeQuestion scores the open question exactly once and moves to
// Revealing. Reached either from the deadline timer or from the last
// outstanding answer; the phase check plus the epoch bump make the
// loser of that race a no-op.
func (r *Room) closeQuestion() {
	if r.phase != phaseRunning {
		return
	}
	r.epoch++
	r.cancelTimer()

	q := r.questions[r.current]
	for id, p := range r.players {
		if a, ok := r.answers[id]; ok && a.choice == q.CorrectIndex {
			p.score += q.Points
		}
	}

	r.phase = phaseRevealing
	delay := r.cfg.revealDelay()
	nextAt := r.now().Add(delay)

	log.Printf("[game] %s results q%d answers %d/%d", r.code, r.current, len(r.answers), len(r.players))
	r.broadcast(ResultsEvent{
		Type:         "results",
		Room:         r.code,
		Index:        r.current,
		CorrectIndex: q.CorrectIndex,
		Leaderboard:  r.leaderboard(),
		NextAt:       nextAt.UnixMilli(),
	})
	r.armTimer(delay, r.openNext)
}

func (r *Room) finalize() {
	r.epoch++
	r.cancelTimer()
	r.phase = phaseEnded
	r.current = -1
	r.deadline = time.Time{}

	log.Printf("[game] %s final (%d players)", r.code, len(r.players))
	r.broadcast(FinalEvent{
		Type:        "final",
		Room:        r.code,
		Leaderboard: r.leaderboard(),
	})
}

// armTimer schedules fn on the room goroutine after d, tagged with the
// current epoch. A firing whose epoch no longer matches is stale (the
// question already closed or the quiz ended) and does nothing.
func (r *Room) armTimer(d time.Duration, fn func()) {
	e := r.epoch
	r.timer = time.AfterFunc(d, func() {
		r.do(func() {
			if r.epoch == e {
				fn()
			}
		})
	})
}

func (r *Room) cancelTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// leaderboard sorts players by score descending, ties broken by join
// order so the ordering is stable across rebroadcasts.
func (r *Room) leaderboard() []domain.PlayerView {
	ordered := make([]*player, 0, len(r.players))
	for _, p := range r.players {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].score != ordered[j].score {
			return ordered[i].score > ordered[j].score
		}
		return ordered[i].seq < ordered[j].seq
	})

	views := make([]domain.PlayerView, len(ordered))
	for i, p := range ordered {
		views[i] = domain.PlayerView{ID: p.id, Name: p.name, Score: p.score, Addr: p.addr}
	}
	return views
}

func (r *Room) broadcastState() {
	r.broadcast(StateEvent{
		Type:    "state",
		Room:    r.code,
		Started: r.phase == phaseRunning || r.phase == phaseRevealing,
		Players: r.leaderboard(),
	})
}

// broadcast marshals once and delivers best-effort: a sink that refuses
// the frame is dropped so one dead connection cannot wedge the room.
func (r *Room) broadcast(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[game] %s marshal event: %v", r.code, err)
		return
	}
	for s := range r.subscribers {
		if !s.Send(data) {
			delete(r.subscribers, s)
		}
	}
	r.attached.Store(int32(len(r.subscribers)))
}
