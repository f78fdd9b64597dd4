package service

import (
	"errors"
	"fmt"
)

// Failure kinds. Match with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// MsgInvalidName is the message of every name validation failure.
const MsgInvalidName = "Invalid Name"

// Error is a domain failure with a client-facing message.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NotFound reports a missing anime.
func NotFound(id int) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("Anime %d not found.", id)}
}

// BadRequest reports invalid input.
func BadRequest(msg string) *Error {
	return &Error{Kind: ErrBadRequest, Message: msg}
}
