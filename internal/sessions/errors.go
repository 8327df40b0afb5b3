package sessions

import "errors"

var (
	ErrNotFound        = errors.New("session not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrImageTooLarge   = errors.New("image too large")
	ErrTooManySessions = errors.New("too many open sessions")
	ErrServiceShutdown = errors.New("session service shut down")
)
