package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/yawuzz/sui-quiz/internal/domain"
)

// CatalogHandler serves the read-only quiz catalog the host UI picks
// from before pushing questions into a room.
type CatalogHandler struct {
	quizzes QuizRepository
}

func NewCatalogHandler(quizzes QuizRepository) *CatalogHandler {
	return &CatalogHandler{quizzes: quizzes}
}

// ServeList handles GET /api/quizzes.
func (h *CatalogHandler) ServeList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summaries, err := h.quizzes.ListQuizzes(r.Context())
	if err != nil {
		log.Printf("catalog list: %v", err)
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, summaries)
}

// ServeQuiz handles GET /api/quizzes/{id}.
func (h *CatalogHandler) ServeQuiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	quizID := strings.TrimPrefix(r.URL.Path, "/api/quizzes/")
	if quizID == "" || strings.Contains(quizID, "/") {
		http.NotFound(w, r)
		return
	}
	quiz, err := h.quizzes.GetQuiz(r.Context(), quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		log.Printf("catalog get %q: %v", quizID, err)
		http.Error(w, "catalog unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, quiz)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("catalog encode: %v", err)
	}
}
