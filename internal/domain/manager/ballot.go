package manager

import (
	"fmt"
	"strings"
)

// Choice is the side a ballot backs.
type Choice int

const (
	ChoiceFor Choice = iota + 1
	ChoiceAgainst
)

func (c Choice) String() string {
	switch c {
	case ChoiceFor:
		return "for"
	case ChoiceAgainst:
		return "against"
	default:
		return "unknown"
	}
}

// ParseChoice accepts for/yes and against/no.
func ParseChoice(s string) (Choice, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "for", "yes":
		return ChoiceFor, nil
	case "against", "no":
		return ChoiceAgainst, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidChoice)
	}
}

// Ballot is a player's button press on a vote channel.
type Ballot struct {
	PlayerID  uint64
	ChannelID uint64
	Choice    Choice
}
