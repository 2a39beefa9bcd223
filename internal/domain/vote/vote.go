// Package vote implements quorum votes over a fixed voter population.
//
// EndMatch, Forfeit and Disconnect votes are two sided: the for and against
// thresholds race independently and whichever is reached first resolves the
// vote. MapPick votes only accumulate a tally; a collaborator compares sibling
// map votes and closes them.
package vote

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
)

var lastID atomic.Uint64

// Vote is safe for concurrent use. The has-voted check, the cast and the
// threshold comparison run under one lock so a resolution is reported to
// exactly one caller.
type Vote struct {
	id         uint64
	kind       Kind
	matchID    string
	title      string
	proposal   string
	proposedBy uint64
	subject    model.Side
	gameMap    model.GameMap
	createdAt  time.Time
	required   int

	mu       sync.Mutex
	eligible map[uint64]struct{}
	yes      map[uint64]struct{}
	no       map[uint64]struct{}
	total    int
	state    State
}

// Option configures a Vote at construction.
type Option func(*Vote)

// WithTitle overrides the kind's default title.
func WithTitle(title string) Option {
	return func(v *Vote) { v.title = title }
}

// WithProposal sets the proposal text shown to voters.
func WithProposal(p string) Option {
	return func(v *Vote) { v.proposal = p }
}

// WithProposedBy records the player who raised the vote.
func WithProposedBy(playerID uint64) Option {
	return func(v *Vote) { v.proposedBy = playerID }
}

// WithSubject sets the side the proposal is about.
func WithSubject(side model.Side) Option {
	return func(v *Vote) { v.subject = side }
}

// WithMap attaches the candidate map of a MapPick vote.
func WithMap(m model.GameMap) Option {
	return func(v *Vote) { v.gameMap = m }
}

// WithCreatedAt pins the creation time.
func WithCreatedAt(t time.Time) Option {
	return func(v *Vote) { v.createdAt = t }
}

// New builds an open vote. requiredVotes is a majority of eligible and is
// fixed for the life of the vote; MapPick votes carry no threshold.
func New(kind Kind, matchID string, eligible []uint64, opts ...Option) (*Vote, error) {
	if _, ok := kindNames[kind]; !ok {
		return nil, ErrUnknownKind
	}
	set := make(map[uint64]struct{}, len(eligible))
	for _, id := range eligible {
		set[id] = struct{}{}
	}
	if len(set) == 0 {
		return nil, ErrNoVoters
	}

	v := &Vote{
		id:        lastID.Add(1),
		kind:      kind,
		matchID:   matchID,
		title:     kind.Title(),
		createdAt: time.Now(),
		eligible:  set,
		yes:       make(map[uint64]struct{}),
		no:        make(map[uint64]struct{}),
	}
	if kind != KindMapPick {
		v.required = len(set)/2 + 1
	}
	for _, opt := range opts {
		opt(v)
	}
	if kind == KindMapPick && v.gameMap.Name != "" && v.title == kind.Title() {
		v.title = v.gameMap.Label()
	}
	return v, nil
}

func (v *Vote) ID() uint64           { return v.id }
func (v *Vote) Kind() Kind           { return v.kind }
func (v *Vote) MatchID() string      { return v.matchID }
func (v *Vote) Title() string        { return v.title }
func (v *Vote) Proposal() string     { return v.proposal }
func (v *Vote) ProposedBy() uint64   { return v.proposedBy }
func (v *Vote) Subject() model.Side  { return v.subject }
func (v *Vote) Map() model.GameMap   { return v.gameMap }
func (v *Vote) CreatedAt() time.Time { return v.createdAt }
func (v *Vote) RequiredVotes() int   { return v.required }

// IsEligible reports whether playerID may cast on this vote.
func (v *Vote) IsEligible(playerID uint64) bool {
	_, ok := v.eligible[playerID]
	return ok
}

// State returns the current lifecycle state.
func (v *Vote) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// HasVoted reports whether playerID appears in either ballot set.
func (v *Vote) HasVoted(playerID uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hasVoted(playerID)
}

func (v *Vote) hasVoted(playerID uint64) bool {
	if _, ok := v.yes[playerID]; ok {
		return true
	}
	_, ok := v.no[playerID]
	return ok
}

// CastFor records a for ballot. It reports true only on the cast that
// brings the for side to requiredVotes, which passes the vote. A repeated
// ballot is a no-op. MapPick ballots accumulate and never report true.
func (v *Vote) CastFor(playerID uint64) (bool, error) {
	return v.cast(playerID, true)
}

// CastAgainst records an against ballot. It reports true only on the cast
// that brings the against side to requiredVotes, which fails the vote.
func (v *Vote) CastAgainst(playerID uint64) (bool, error) {
	if v.kind == KindMapPick {
		return false, ErrUnsupportedBallot
	}
	return v.cast(playerID, false)
}

func (v *Vote) cast(playerID uint64, inFavour bool) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state.Terminal() {
		return false, ErrVoteClosed
	}
	if _, ok := v.eligible[playerID]; !ok {
		return false, ErrNotEligible
	}
	if v.hasVoted(playerID) {
		return false, nil
	}

	side := v.no
	if inFavour {
		side = v.yes
	}
	side[playerID] = struct{}{}
	v.total++

	if v.kind == KindMapPick || len(side) < v.required {
		return false, nil
	}
	if inFavour {
		v.state = StatePassed
	} else {
		v.state = StateFailed
	}
	return true, nil
}

// RemoveVote withdraws a MapPick ballot before the vote is closed. It
// reports whether a ballot was removed.
func (v *Vote) RemoveVote(playerID uint64) (bool, error) {
	if v.kind != KindMapPick {
		return false, ErrBallotImmutable
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state.Terminal() {
		return false, ErrVoteClosed
	}
	if _, ok := v.yes[playerID]; !ok {
		return false, nil
	}
	delete(v.yes, playerID)
	v.total--
	return true, nil
}

// Close resolves the vote from outside, as happens when sibling map votes
// are compared. It reports false when the vote was already resolved.
func (v *Vote) Close(passed bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state.Terminal() {
		return false
	}
	if passed {
		v.state = StatePassed
	} else {
		v.state = StateFailed
	}
	return true
}

// Count returns the number of for ballots.
func (v *Vote) Count() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.yes)
}

// Tally is a point in time copy of a vote's counters.
type Tally struct {
	ID         uint64
	Kind       Kind
	MatchID    string
	Title      string
	Proposal   string
	ProposedBy uint64
	Subject    model.Side
	Map        model.GameMap
	For        int
	Against    int
	Total      int
	Required   int
	State      State
	CreatedAt  time.Time
}

// Tally snapshots the vote.
func (v *Vote) Tally() Tally {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Tally{
		ID:         v.id,
		Kind:       v.kind,
		MatchID:    v.matchID,
		Title:      v.title,
		Proposal:   v.proposal,
		ProposedBy: v.proposedBy,
		Subject:    v.subject,
		Map:        v.gameMap,
		For:        len(v.yes),
		Against:    len(v.no),
		Total:      v.total,
		Required:   v.required,
		State:      v.state,
		CreatedAt:  v.createdAt,
	}
}
