package domain

import "errors"

var (
	// ErrQuizNotFound indicates the catalog has no quiz with the requested ID.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrInvalidQuiz indicates a quiz failed validation and was rejected whole.
	ErrInvalidQuiz = errors.New("invalid quiz")
)
