package issues

import "errors"

var (
	ErrNotFound     = errors.New("issue not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("issue already exists")
)
