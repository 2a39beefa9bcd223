package match

// State is the lifecycle position of a Match.
type State int

const (
	StateForming State = iota
	StateInProgress
	StateVoteRaised
	StateResolved
)

func (s State) String() string {
	switch s {
	case StateForming:
		return "forming"
	case StateInProgress:
		return "in_progress"
	case StateVoteRaised:
		return "vote_raised"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Outcome is how a resolved match ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeCompleted
	OutcomeForfeitedBySide
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeForfeitedBySide:
		return "forfeited_by_side"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return ""
	}
}
