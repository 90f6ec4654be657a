package domain

// Question is one multiple-choice question. Immutable once loaded into a room.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Points       int      `json:"points"`
	DurationSec  int      `json:"durationSec"`
}

// Valid reports whether the question is well-formed enough to be played.
func (q Question) Valid() bool {
	return q.Text != "" &&
		len(q.Options) >= 2 &&
		q.CorrectIndex >= 0 && q.CorrectIndex < len(q.Options) &&
		q.Points > 0 &&
		q.DurationSec > 0
}

// ValidateQuestions checks a batch before it is loaded into a room.
// One bad entry rejects the whole batch; an empty batch is a valid way
// to clear a room.
func ValidateQuestions(qs []Question) error {
	for _, q := range qs {
		if !q.Valid() {
			return ErrInvalidQuiz
		}
	}
	return nil
}

// Quiz is a catalog entry a host can load into a room.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

// QuizSummary is the listing view of a catalog entry.
type QuizSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Questions   int    `json:"questions"`
}

// PlayerView is the wire representation of a player inside state,
// results and final events. Addr is an opaque wallet address supplied
// on join; the engine never inspects it.
type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Addr  string `json:"addr,omitempty"`
}
