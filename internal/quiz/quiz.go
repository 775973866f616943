// Package quiz implements the quiz sub-state machine as pure transitions
// over models.QuizState, so progression and scoring are testable without
// any rendering or transport layer.
package quiz

import (
	"errors"
	"fmt"

	"elix-client/internal/models"
)

var (
	// ErrFeedbackPending rejects a second answer submitted while feedback
	// for the current question is still showing.
	ErrFeedbackPending = errors.New("answer already submitted for this question")

	// ErrCompleted rejects play actions once the quiz has finished.
	ErrCompleted = errors.New("quiz is already completed")

	// ErrNoFeedback rejects advancing before the current question was
	// answered.
	ErrNoFeedback = errors.New("current question has not been answered")

	// ErrUnknownOption rejects an answer letter the question does not have.
	ErrUnknownOption = errors.New("unknown answer option")
)

// Start builds the initial in-progress state from a generated quiz.
func Start(topic string, questions []models.Question) *models.QuizState {
	return &models.QuizState{
		Topic:     topic,
		Questions: questions,
		Answers:   []models.QuizAnswer{},
	}
}

// SubmitAnswer scores the selected option against the current question,
// records it, and moves to the feedback state. Submitting again before
// Advance is rejected without changing score or answers.
func SubmitAnswer(qs *models.QuizState, option string) error {
	if qs.Completed {
		return ErrCompleted
	}
	if qs.ShowingFeedback {
		return ErrFeedbackPending
	}

	current := qs.Current()
	if current == nil {
		return fmt.Errorf("no question at index %d", qs.CurrentIndex)
	}
	if _, ok := current.Options[option]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOption, option)
	}

	isCorrect := option == current.Correct
	qs.Answers = append(qs.Answers, models.QuizAnswer{
		Question:      current.Question,
		UserAnswer:    option,
		CorrectAnswer: current.Correct,
		IsCorrect:     isCorrect,
		Explanation:   current.Explanation,
	})
	if isCorrect {
		qs.Score++
	}
	qs.ShowingFeedback = true
	qs.CurrentIsCorrect = isCorrect
	return nil
}

// Advance moves past the feedback state: to the next question, or to
// completion after the last one.
func Advance(qs *models.QuizState) error {
	if qs.Completed {
		return ErrCompleted
	}
	if !qs.ShowingFeedback {
		return ErrNoFeedback
	}

	if qs.CurrentIndex < len(qs.Questions)-1 {
		qs.CurrentIndex++
		qs.ShowingFeedback = false
		qs.CurrentIsCorrect = false
	} else {
		qs.Completed = true
		qs.ShowingFeedback = false
	}
	return nil
}

// Answered returns how many questions have been answered so far,
// including the current one while its feedback is showing.
func Answered(qs *models.QuizState) int {
	if qs.Completed {
		return len(qs.Questions)
	}
	if qs.ShowingFeedback {
		return qs.CurrentIndex + 1
	}
	return qs.CurrentIndex
}

// ScoreLine formats the live score as answered-so-far out of total,
// e.g. "2/3".
func ScoreLine(qs *models.QuizState) string {
	return fmt.Sprintf("%d/%d", qs.Score, Answered(qs))
}
