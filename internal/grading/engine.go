package grading

import (
	"context"
	"errors"
	"fmt"
)

// Flagged is the selected-answer value for a skipped or flagged question.
const Flagged = -1

var ErrOutOfRange = errors.New("selected answer out of range")

// Q is the minimal view of a question needed for grading.
type Q struct {
	Options       int // number of options offered
	CorrectAnswer int // 0-based index into the options
}

// Result is the outcome of grading one selection.
type Result struct {
	Correct bool
}

// Grader grades a single selection.
type Grader interface {
	Grade(ctx context.Context, q Q, selected int) (Result, error)
}

// NewDefaultGrader returns the single-choice grader.
func NewDefaultGrader() Grader { return singleChoice{} }

type singleChoice struct{}

func (singleChoice) Grade(_ context.Context, q Q, selected int) (Result, error) {
	if selected == Flagged {
		// a flag never scores, whatever the key says
		return Result{}, nil
	}
	if selected < 0 || selected >= q.Options {
		return Result{}, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, selected, q.Options)
	}
	return Result{Correct: selected == q.CorrectAnswer}, nil
}
