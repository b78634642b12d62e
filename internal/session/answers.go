package session

import (
	"context"
	"errors"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/lessons"
)

// ErrNoAnswers is returned by an AnswerSource that has nothing left to give.
var ErrNoAnswers = errors.New("no more answers")

// AnswerRequest is what the student is shown before answering.
type AnswerRequest struct {
	StudentID string
	ThreadID  string
	Topic     string
	Cycle     int
	Lesson    *lessons.Lesson
	Questions []grading.Question
}

// AnswerSource supplies the student's answers for a set of questions.
type AnswerSource interface {
	Answers(ctx context.Context, req AnswerRequest) ([]grading.Answer, error)
}

// AnswerFunc adapts a function to AnswerSource.
type AnswerFunc func(ctx context.Context, req AnswerRequest) ([]grading.Answer, error)

// Answers implements AnswerSource.
func (f AnswerFunc) Answers(ctx context.Context, req AnswerRequest) ([]grading.Answer, error) {
	return f(ctx, req)
}

// StaticAnswers answers by question ID and falls back to Default for
// unknown IDs. It is used by batch runs with an answer file.
type StaticAnswers struct {
	ByID    map[string]string `json:"answers"`
	Default string            `json:"default"`
}

// Answers implements AnswerSource.
func (s StaticAnswers) Answers(_ context.Context, req AnswerRequest) ([]grading.Answer, error) {
	out := make([]grading.Answer, 0, len(req.Questions))
	for _, q := range req.Questions {
		text, ok := s.ByID[q.ID]
		if !ok {
			text = s.Default
		}
		out = append(out, grading.Answer{QuestionID: q.ID, Text: text})
	}
	return out, nil
}
