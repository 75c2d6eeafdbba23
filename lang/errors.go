package lang

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is matched by every TimeoutError.
var ErrTimeout = errors.New("calculations exceeded time limit")

// EvalError reports a failure raised while evaluating a compiled expression.
type EvalError struct {
	Pos int
	Msg string
}

func (e *EvalError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("position %d: %s", e.Pos, e.Msg)
}

func evalErrorf(pos int, format string, args ...interface{}) error {
	return &EvalError{
		Pos: pos,
		Msg: fmt.Sprintf(format, args...),
	}
}

// TimeoutError aborts an evaluation that ran past its budget or whose
// context was cancelled. Err holds the context error, if any.
type TimeoutError struct {
	Pos   int
	Limit time.Duration
	Err   error
}

func (e *TimeoutError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("position %d: evaluation stopped: %v", e.Pos, e.Err)
	}
	return fmt.Sprintf("position %d: %v (%s)", e.Pos, ErrTimeout, e.Limit)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTimeout reports whether err aborted an evaluation because of its budget.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
