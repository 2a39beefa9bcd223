package store

import "errors"

// Sentinel errors shared by every backend.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidLimit   = errors.New("invalid ladder limit")
	ErrInvalidPlayer  = errors.New("invalid player record")
)
