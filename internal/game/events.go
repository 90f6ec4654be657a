package game

import "github.com/yawuzz/sui-quiz/internal/domain"

// Outbound event payloads. Every frame carries a "type" discriminator and
// the room code so clients can multiplex several rooms over one connection.

// StateEvent is broadcast after any membership or lifecycle change.
type StateEvent struct {
	Type    string              `json:"type"`
	Room    string              `json:"room"`
	Started bool                `json:"started"`
	Players []domain.PlayerView `json:"players"`
}

// QuestionEvent opens a question. EndsAt is an absolute epoch-millisecond
// deadline; clients derive the remaining time locally.
type QuestionEvent struct {
	Type    string   `json:"type"`
	Room    string   `json:"room"`
	Index   int      `json:"index"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
	EndsAt  int64    `json:"endsAt"`
}

// ResultsEvent closes a question: reveals the correct option and the
// leaderboard, and announces when the next question opens.
type ResultsEvent struct {
	Type         string              `json:"type"`
	Room         string              `json:"room"`
	Index        int                 `json:"index"`
	CorrectIndex int                 `json:"correctIndex"`
	Leaderboard  []domain.PlayerView `json:"leaderboard"`
	NextAt       int64               `json:"nextAt"`
}

// FinalEvent ends the quiz with the frozen leaderboard.
type FinalEvent struct {
	Type        string              `json:"type"`
	Room        string              `json:"room"`
	Leaderboard []domain.PlayerView `json:"leaderboard"`
}
