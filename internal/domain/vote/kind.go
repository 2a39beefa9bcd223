package vote

// Kind tags the proposal a Vote decides.
type Kind int

const (
	KindUnknown Kind = iota
	KindEndMatch
	KindForfeit
	KindDisconnect
	KindMapPick
)

var kindNames = map[Kind]string{
	KindEndMatch:   "end_match",
	KindForfeit:    "forfeit",
	KindDisconnect: "disconnect",
	KindMapPick:    "map_pick",
}

var kindTitles = map[Kind]string{
	KindEndMatch:   "End Match",
	KindForfeit:    "Forfeit",
	KindDisconnect: "Disconnect",
	KindMapPick:    "Map Vote",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Title is the human readable heading used in notices.
func (k Kind) Title() string {
	if s, ok := kindTitles[k]; ok {
		return s
	}
	return "Vote"
}

// Terminating reports whether a passed vote of this kind ends the match.
func (k Kind) Terminating() bool {
	switch k {
	case KindEndMatch, KindForfeit, KindDisconnect:
		return true
	default:
		return false
	}
}

// ParseKind maps the wire name of a kind back to its tag.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, ErrUnknownKind
}

// State is the lifecycle position of a Vote.
type State int

const (
	StateOpen State = iota
	StatePassed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StatePassed:
		return "passed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool { return s == StatePassed || s == StateFailed }
