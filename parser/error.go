package parser

import (
	"errors"
	"fmt"
)

// Sentinels for the stage that rejected the source.
var (
	ErrLex   = errors.New("lex error")
	ErrParse = errors.New("parse error")
	ErrBind  = errors.New("bind error")
)

// Error is a compile error with its source position.
type Error struct {
	Kind       error
	Pos        Position
	Msg        string
	Incomplete bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Kind
}

// Position returns the zero-based byte offset of the error.
func (e *Error) Position() int {
	return e.Pos.Offset
}

func newError(kind error, pos Position, format string, args ...interface{}) error {
	return &Error{
		Kind: kind,
		Pos:  pos,
		Msg:  fmt.Sprintf(format, args...),
	}
}

func newIncompleteError(kind error, pos Position, format string, args ...interface{}) error {
	return &Error{
		Kind:       kind,
		Pos:        pos,
		Msg:        fmt.Sprintf(format, args...),
		Incomplete: true,
	}
}

// IsIncomplete reports whether the supplied error was caused by input that
// ended too early, such as an open bracket or block comment.
func IsIncomplete(err error) bool {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Incomplete
	}
	return false
}

// ErrorPosition returns the byte offset carried by a compile error.
func ErrorPosition(err error) (int, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Pos.Offset, true
	}
	return 0, false
}
