package team

import "errors"

// Sentinel errors for roster construction.
var (
	ErrInvalidRoster = errors.New("invalid roster")
	ErrUnevenPool    = errors.New("player pool cannot be split into two equal teams")
)
