package http

import (
	"encoding/json"

	"github.com/yawuzz/sui-quiz/internal/domain"
)

// inbound is the envelope for every client frame. Fields beyond Type and
// Room are message-specific; pointers distinguish "absent" from zero for
// the numeric fields so malformed answers can be dropped at the edge.
type inbound struct {
	Type      string          `json:"type"`
	Room      string          `json:"room"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	Addr      string          `json:"addr"` // legacy alias for Address
	QuizID    string          `json:"quizId"`
	Index     *int            `json:"index"`
	Choice    *int            `json:"choice"`
	Questions json.RawMessage `json:"questions"`
}

// decodeInbound parses a frame and checks its structural shape. A false
// return means the frame is dropped silently per the protocol's
// best-effort contract; the connection stays open.
func decodeInbound(data []byte) (inbound, bool) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return inbound{}, false
	}
	if msg.Type == "" {
		return inbound{}, false
	}
	if msg.Type == "answer" && (msg.Index == nil || msg.Choice == nil) {
		return inbound{}, false
	}
	return msg, true
}

// walletAddress resolves the join address, accepting both field names the
// clients have historically sent.
func (m inbound) walletAddress() string {
	if m.Address != "" {
		return m.Address
	}
	return m.Addr
}

// questionBatch parses the inline questions payload of load_questions.
func (m inbound) questionBatch() ([]domain.Question, bool) {
	if len(m.Questions) == 0 {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(m.Questions, &qs); err != nil {
		return nil, false
	}
	return qs, true
}
