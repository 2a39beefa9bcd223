package manager

import "errors"

var (
	// ErrPlayerNotInMatch is the error form of an absent MatchOfPlayer result.
	ErrPlayerNotInMatch = errors.New("player is not in a match")
	ErrPlayerBusy       = errors.New("player is already in a match")
	ErrMatchNotFound    = errors.New("match not found")
	ErrStopped          = errors.New("match manager stopped")
	ErrNotResolved      = errors.New("match is not resolved")
	ErrUnevenTeams      = errors.New("teams must have the same size")
	ErrNotRegistered    = errors.New("player is not registered")
	ErrSettlement       = errors.New("settlement failed")
	ErrInvalidChoice    = errors.New("invalid ballot choice")

	// ErrSettlementInProgress is returned by a retry that raced another
	// settlement attempt of the same match.
	ErrSettlementInProgress = errors.New("settlement in progress")
)
