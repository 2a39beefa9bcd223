// Package match pairs two teams with their per-channel votes and drives the
// match lifecycle from those votes' outcomes.
package match

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/rating"
	"github.com/sbwgg/Checker-bot/internal/domain/team"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
	"github.com/sbwgg/Checker-bot/internal/domain/vote"
)

// Match is safe for concurrent use. Resolution is a one-shot latch: the
// first passed terminating vote wins and later signals are ignored.
type Match struct {
	id         string
	teams      [2]*team.Team
	candidates []model.GameMap
	createdAt  time.Time
	now        func() time.Time

	resolved atomic.Bool

	mu         sync.Mutex
	state      State
	votes      map[uint64]*vote.Vote
	mapVotes   []*vote.Vote
	backers    map[uint64]int
	chosen     *model.GameMap
	outcome    Outcome
	winner     model.Side
	resolvedBy uint64
	resolvedAt time.Time
	changes    []rating.Change
	computed   bool
	settled    bool
}

// Option configures a Match.
type Option func(*Match)

// WithID overrides the generated match id.
func WithID(id string) Option {
	return func(m *Match) {
		if id != "" {
			m.id = id
		}
	}
}

// WithMapCandidates opens a map phase over the given maps. The order of
// maps is the proposal order used to break ties.
func WithMapCandidates(maps []model.GameMap) Option {
	return func(m *Match) {
		m.candidates = append([]model.GameMap(nil), maps...)
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Match) {
		if now != nil {
			m.now = now
		}
	}
}

// New pairs a and b in the Forming state. A player may appear on only one side.
func New(a, b *team.Team, opts ...Option) (*Match, error) {
	if a == nil || b == nil {
		return nil, ErrInvalidTeams
	}
	for _, id := range a.IDs() {
		if b.Has(id) {
			return nil, fmt.Errorf("player %d on both teams: %w", id, ErrInvalidTeams)
		}
	}

	m := &Match{
		id:      uuid.NewString(),
		teams:   [2]*team.Team{a, b},
		now:     time.Now,
		votes:   make(map[uint64]*vote.Vote),
		backers: make(map[uint64]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.createdAt = m.now()

	everyone := m.PlayerIDs()
	for _, gm := range m.candidates {
		v, err := vote.New(vote.KindMapPick, m.id, everyone,
			vote.WithMap(gm),
			vote.WithProposal("Play "+gm.Label()),
			vote.WithCreatedAt(m.createdAt),
		)
		if err != nil {
			return nil, fmt.Errorf("map vote %q: %w", gm.Name, err)
		}
		m.mapVotes = append(m.mapVotes, v)
	}
	return m, nil
}

// ID returns the match id.
func (m *Match) ID() string { return m.id }

// CreatedAt returns when the match was formed.
func (m *Match) CreatedAt() time.Time { return m.createdAt }

// Team returns the roster of side, or nil for SideNone.
func (m *Match) Team(side model.Side) *team.Team {
	switch side {
	case model.SideA:
		return m.teams[0]
	case model.SideB:
		return m.teams[1]
	default:
		return nil
	}
}

// SideOf returns the side playerID plays on.
func (m *Match) SideOf(playerID uint64) model.Side {
	switch {
	case m.teams[0].Has(playerID):
		return model.SideA
	case m.teams[1].Has(playerID):
		return model.SideB
	default:
		return model.SideNone
	}
}

// Has reports whether playerID plays in the match.
func (m *Match) Has(playerID uint64) bool { return m.SideOf(playerID) != model.SideNone }

// Players returns both rosters, side A first.
func (m *Match) Players() []model.Player {
	return append(m.teams[0].Players(), m.teams[1].Players()...)
}

// PlayerIDs returns the ids of Players.
func (m *Match) PlayerIDs() []uint64 {
	return append(m.teams[0].IDs(), m.teams[1].IDs()...)
}

// State returns the lifecycle state.
func (m *Match) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Resolved reports whether a terminating vote has resolved the match.
func (m *Match) Resolved() bool { return m.resolved.Load() }

// Outcome returns how the match ended and the winning side.
func (m *Match) Outcome() (Outcome, model.Side) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome, m.winner
}

// NewVote builds a terminating vote for this match. Forfeit votes are decided
// by the forfeiting side alone and default to the proposer's side; the other
// kinds are decided by every participant.
func (m *Match) NewVote(kind vote.Kind, proposedBy uint64, subject model.Side, proposal string) (*vote.Vote, error) {
	if !kind.Terminating() {
		return nil, fmt.Errorf("%s: %w", kind, ErrInvalidVote)
	}
	side := m.SideOf(proposedBy)
	if side == model.SideNone {
		return nil, ErrNotParticipant
	}

	eligible := m.PlayerIDs()
	switch kind {
	case vote.KindEndMatch:
		if subject == model.SideNone {
			return nil, fmt.Errorf("end match needs a winning side: %w", ErrInvalidVote)
		}
		if proposal == "" {
			proposal = "Team " + subject.String() + " wins"
		}
	case vote.KindForfeit:
		if subject == model.SideNone {
			subject = side
		}
		if subject != side {
			return nil, vote.ErrNotEligible
		}
		eligible = m.Team(subject).IDs()
		if proposal == "" {
			proposal = "Team " + subject.String() + " forfeits"
		}
	case vote.KindDisconnect:
		subject = model.SideNone
		if proposal == "" {
			proposal = "Cancel the match"
		}
	}

	return vote.New(kind, m.id, eligible,
		vote.WithProposedBy(proposedBy),
		vote.WithSubject(subject),
		vote.WithProposal(proposal),
		vote.WithCreatedAt(m.now()),
	)
}

// GetVote returns the vote registered on channelID.
func (m *Match) GetVote(channelID uint64) (*vote.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.votes[channelID]
	if !ok {
		return nil, ErrNoActiveVote
	}
	return v, nil
}

// RaiseVote registers v on channelID. A prior vote on the channel is
// replaced only once it has resolved.
func (m *Match) RaiseVote(channelID uint64, v *vote.Vote) error {
	if v == nil || v.MatchID() != m.id || !v.Kind().Terminating() {
		return ErrInvalidVote
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateResolved:
		return ErrMatchResolved
	case StateForming:
		return ErrWrongPhase
	}
	if prior, ok := m.votes[channelID]; ok && !prior.State().Terminal() {
		return ErrVoteInProgress
	}
	m.votes[channelID] = v
	m.state = StateVoteRaised
	return nil
}

// RemoveVote unregisters the vote on channelID. The match falls back to
// InProgress once no open vote remains.
func (m *Match) RemoveVote(channelID uint64) (*vote.Vote, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.votes[channelID]
	if !ok {
		return nil, false
	}
	delete(m.votes, channelID)

	if m.state == StateVoteRaised && !m.hasOpenVote() {
		m.state = StateInProgress
	}
	return v, true
}

func (m *Match) hasOpenVote() bool {
	for _, v := range m.votes {
		if !v.State().Terminal() {
			return true
		}
	}
	return false
}

// Start moves a match without a pending map phase into play.
func (m *Match) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateResolved {
		return ErrMatchResolved
	}
	if m.state != StateForming {
		return ErrWrongPhase
	}
	if len(m.mapVotes) > 0 && m.chosen == nil {
		return ErrMapPending
	}
	m.state = StateInProgress
	return nil
}

// MapCandidates returns the map votes in proposal order.
func (m *Match) MapCandidates() []*vote.Vote {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*vote.Vote(nil), m.mapVotes...)
}

// CastMap backs candidate for playerID. A player backs one candidate at a
// time; further ballots are no-ops until the first is removed. allIn is true
// once every participant has backed a candidate.
func (m *Match) CastMap(playerID uint64, candidate int) (allIn bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mapPhase(); err != nil {
		return false, err
	}
	if candidate < 0 || candidate >= len(m.mapVotes) {
		return false, ErrNoSuchCandidate
	}
	if !m.Has(playerID) {
		return false, ErrNotParticipant
	}
	if _, ok := m.backers[playerID]; ok {
		return false, nil
	}
	if _, err := m.mapVotes[candidate].CastFor(playerID); err != nil {
		return false, err
	}
	m.backers[playerID] = candidate
	return len(m.backers) == m.teams[0].Size()+m.teams[1].Size(), nil
}

// RemoveMapBallot withdraws playerID's map ballot.
func (m *Match) RemoveMapBallot(playerID uint64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mapPhase(); err != nil {
		return false, err
	}
	c, ok := m.backers[playerID]
	if !ok {
		return false, nil
	}
	removed, err := m.mapVotes[c].RemoveVote(playerID)
	if err != nil {
		return false, err
	}
	delete(m.backers, playerID)
	return removed, nil
}

// mapPhase must be called with m.mu held.
func (m *Match) mapPhase() error {
	switch {
	case m.state == StateResolved:
		return ErrMatchResolved
	case len(m.mapVotes) == 0:
		return ErrNoMapVote
	case m.state != StateForming:
		return ErrWrongPhase
	}
	return nil
}

// DecideMap compares the candidate tallies, closes every map vote and
// starts the match. The highest tally wins; on a tie the candidate proposed
// first wins.
func (m *Match) DecideMap() (model.GameMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mapPhase(); err != nil {
		return model.GameMap{}, err
	}

	best, bestCount := 0, m.mapVotes[0].Count()
	for i := 1; i < len(m.mapVotes); i++ {
		if c := m.mapVotes[i].Count(); c > bestCount {
			best, bestCount = i, c
		}
	}
	for i, v := range m.mapVotes {
		v.Close(i == best)
	}

	chosen := m.mapVotes[best].Map()
	m.chosen = &chosen
	m.state = StateInProgress
	return chosen, nil
}

// Map returns the decided map.
func (m *Match) Map() (model.GameMap, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.chosen == nil {
		return model.GameMap{}, false
	}
	return *m.chosen, true
}

// Resolve applies the outcome of a passed terminating vote. It reports true
// for exactly one caller per match; every later call, and any call with a
// vote that has not passed, reports false and changes nothing.
func (m *Match) Resolve(v *vote.Vote) bool {
	if v == nil || v.MatchID() != m.id || !v.Kind().Terminating() || v.State() != vote.StatePassed {
		return false
	}
	if !m.resolved.CompareAndSwap(false, true) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch v.Kind() {
	case vote.KindEndMatch:
		m.outcome, m.winner = OutcomeCompleted, v.Subject()
	case vote.KindForfeit:
		m.outcome, m.winner = OutcomeForfeitedBySide, v.Subject().Other()
	default:
		m.outcome, m.winner = OutcomeCancelled, model.SideNone
	}
	m.state = StateResolved
	m.resolvedBy = v.ID()
	m.resolvedAt = m.now()
	return true
}

// ResolvedBy returns the id of the vote that resolved the match.
func (m *Match) ResolvedBy() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolvedBy
}

// Settlement returns the rating changes of a resolved match. They are
// computed once, on the first call, so every retry writes the same values.
// A cancelled match has no changes.
func (m *Match) Settlement(calc *rating.Calculator) []rating.Change {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateResolved {
		return nil
	}
	if !m.computed {
		m.computed = true
		if m.winner != model.SideNone {
			w, l := m.Team(m.winner), m.Team(m.winner.Other())
			m.changes = calc.Changes(w.Players(), l.Players(), w.AverageRating(), l.AverageRating())
		}
	}
	return append([]rating.Change(nil), m.changes...)
}

// MarkSettled records that the settlement has been persisted.
func (m *Match) MarkSettled() {
	m.mu.Lock()
	m.settled = true
	m.mu.Unlock()
}

// Settled reports whether MarkSettled was called.
func (m *Match) Settled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settled
}

// View snapshots the match under its lock.
func (m *Match) View() types.MatchView {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := types.MatchView{
		ID:        m.id,
		State:     m.state.String(),
		Outcome:   m.outcome.String(),
		Teams:     []types.TeamView{teamView(model.SideA, m.teams[0]), teamView(model.SideB, m.teams[1])},
		Votes:     []types.VoteView{},
		Settled:   m.settled,
		CreatedAt: m.createdAt,
	}
	if m.winner != model.SideNone {
		view.Winner = m.winner.String()
	}
	if m.chosen != nil {
		view.Map = m.chosen.Label()
	}
	if m.state == StateResolved {
		at := m.resolvedAt
		view.ResolvedAt = &at
	}

	channels := make([]uint64, 0, len(m.votes))
	for ch := range m.votes {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	for _, ch := range channels {
		vv := VoteView(m.votes[ch].Tally())
		vv.ChannelID = ch
		view.Votes = append(view.Votes, vv)
	}
	for i, v := range m.mapVotes {
		vv := VoteView(v.Tally())
		idx := i
		vv.Candidate = &idx
		view.MapVotes = append(view.MapVotes, vv)
	}
	for _, c := range m.changes {
		view.Settlement = append(view.Settlement, types.RatingChange{
			PlayerID: c.PlayerID, Before: c.Before, After: c.After, Delta: c.Delta(),
		})
	}
	return view
}

// VoteView renders a tally for clients.
func VoteView(t vote.Tally) types.VoteView {
	vv := types.VoteView{
		ID:         t.ID,
		Kind:       t.Kind.String(),
		Title:      t.Title,
		Proposal:   t.Proposal,
		ProposedBy: t.ProposedBy,
		For:        t.For,
		Against:    t.Against,
		Total:      t.Total,
		Required:   t.Required,
		State:      t.State.String(),
		CreatedAt:  t.CreatedAt,
	}
	if t.Subject != model.SideNone {
		vv.Subject = t.Subject.String()
	}
	return vv
}

func teamView(side model.Side, t *team.Team) types.TeamView {
	tv := types.TeamView{
		Side:           side.String(),
		VoiceChannelID: t.VoiceChannelID(),
		AverageRating:  t.AverageRating(),
	}
	for _, p := range t.Players() {
		tv.Players = append(tv.Players, types.PlayerView{
			ID: p.ID, Name: p.Name, Rating: p.Rating, Tier: rating.TierAt(p.Rating).String(),
		})
	}
	return tv
}
