package vote

import "errors"

// Sentinel errors returned by Vote operations.
var (
	ErrVoteClosed        = errors.New("vote is closed")
	ErrNotEligible       = errors.New("player is not eligible for this vote")
	ErrUnsupportedBallot = errors.New("ballot is not supported by this vote kind")
	ErrBallotImmutable   = errors.New("ballots on this vote cannot be removed")
	ErrNoVoters          = errors.New("vote has no eligible voters")
	ErrUnknownKind       = errors.New("unknown vote kind")
)
