package app

import "errors"

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found")
	ErrNoFiles         = errors.New("no files or session_id provided")
)
