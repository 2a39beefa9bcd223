// Package manager hosts the process-wide match registry. A single actor
// goroutine owns the player and match maps; every lookup and registration
// is a request on its channel.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sbwgg/Checker-bot/internal/domain/dedupe"
	"github.com/sbwgg/Checker-bot/internal/domain/match"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/rating"
	"github.com/sbwgg/Checker-bot/internal/domain/team"
	"github.com/sbwgg/Checker-bot/internal/domain/types"
	"github.com/sbwgg/Checker-bot/internal/domain/vote"
	"github.com/sbwgg/Checker-bot/pkg/logger"
	"github.com/sbwgg/Checker-bot/pkg/metrics"
)

// PlayerStore is the slice of the persistence store the manager needs.
type PlayerStore interface {
	GetPlayer(ctx context.Context, id uint64) (model.Player, error)
	UpdateRating(ctx context.Context, id uint64, rating int) error
}

// Enqueuer accepts outbound jobs without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, j model.Job) bool
}

// CreateRequest forms a match either from two explicit rosters or from a
// pool that is balanced into two.
type CreateRequest struct {
	TeamA  []uint64
	TeamB  []uint64
	Pool   []uint64
	VoiceA uint64
	VoiceB uint64
}

// RaiseRequest opens a terminating vote on a channel.
type RaiseRequest struct {
	MatchID    string
	ChannelID  uint64
	Kind       vote.Kind
	ProposedBy uint64
	Subject    model.Side
	Proposal   string
}

// CastResult describes what a ballot did.
type CastResult struct {
	MatchID string
	Tally   vote.Tally
	// Resolved is true for the one ballot that decided the vote.
	Resolved bool
	// Applied is true when that decision resolved the match.
	Applied bool
}

type registry struct {
	players map[uint64]*match.Match
	matches map[string]*match.Match
	timers  map[string]*time.Timer
}

type request struct {
	fn   func(*registry)
	done chan struct{}
}

// Manager routes ballots to matches and settles resolved matches.
type Manager struct {
	store    PlayerStore
	jobs     Enqueuer
	calc     *rating.Calculator
	recorder dedupe.Recorder
	logger   logger.Logger
	now      func() time.Time

	mapPool       []model.GameMap
	mapCandidates int
	mapWindow     time.Duration
	teamSize      int
	mapOffset     atomic.Uint64

	reg      *registry
	reqs     chan request
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu       sync.Mutex
	stopping bool
	inflight sync.WaitGroup
}

// New starts a manager. jobs may be nil, in which case notices and flag
// updates are discarded.
func New(store PlayerStore, jobs Enqueuer, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		jobs:     jobs,
		calc:     rating.NewCalculator(),
		recorder: dedupe.NewRecorder(),
		logger:   logger.Get().Named("manager"),
		now:      time.Now,
		reg: &registry{
			players: make(map[uint64]*match.Match),
			matches: make(map[string]*match.Match),
			timers:  make(map[string]*time.Timer),
		},
		reqs: make(chan request),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	go m.loop()
	return m
}

func (m *Manager) loop() {
	defer close(m.done)
	for {
		select {
		case req := <-m.reqs:
			req.fn(m.reg)
			close(req.done)
		case <-m.quit:
			return
		}
	}
}

// do runs fn on the actor goroutine and waits for it to finish.
func (m *Manager) do(ctx context.Context, fn func(*registry)) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case m.reqs <- req:
	case <-m.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-req.done
	return nil
}

// CreateMatch fetches the players, forms two teams and registers every
// player atomically. A player already in a match fails the whole request
// with ErrPlayerBusy.
func (m *Manager) CreateMatch(ctx context.Context, req CreateRequest) (*match.Match, error) {
	var a, b []model.Player
	var err error
	if len(req.Pool) > 0 {
		if m.teamSize > 0 && len(req.Pool) != 2*m.teamSize {
			return nil, fmt.Errorf("pool of %d for teams of %d: %w", len(req.Pool), m.teamSize, ErrUnevenTeams)
		}
		pool, err := m.fetch(ctx, req.Pool)
		if err != nil {
			return nil, err
		}
		if a, b, err = team.Balance(pool); err != nil {
			return nil, fmt.Errorf("balance pool: %w", err)
		}
	} else {
		if len(req.TeamA) != len(req.TeamB) || (m.teamSize > 0 && len(req.TeamA) != m.teamSize) {
			return nil, fmt.Errorf("rosters of %d and %d: %w", len(req.TeamA), len(req.TeamB), ErrUnevenTeams)
		}
		if a, err = m.fetch(ctx, req.TeamA); err != nil {
			return nil, err
		}
		if b, err = m.fetch(ctx, req.TeamB); err != nil {
			return nil, err
		}
	}

	ta, err := team.New(a, req.VoiceA)
	if err != nil {
		return nil, fmt.Errorf("team A: %w", err)
	}
	tb, err := team.New(b, req.VoiceB)
	if err != nil {
		return nil, fmt.Errorf("team B: %w", err)
	}
	mt, err := match.New(ta, tb, match.WithMapCandidates(m.candidates()), match.WithClock(m.now))
	if err != nil {
		return nil, err
	}

	var busy error
	var active, registered int
	err = m.do(ctx, func(r *registry) {
		for _, id := range mt.PlayerIDs() {
			if _, ok := r.players[id]; ok {
				busy = fmt.Errorf("player %d: %w", id, ErrPlayerBusy)
				return
			}
		}
		for _, id := range mt.PlayerIDs() {
			r.players[id] = mt
		}
		r.matches[mt.ID()] = mt
		if m.mapWindow > 0 && len(mt.MapCandidates()) > 0 {
			id := mt.ID()
			r.timers[id] = time.AfterFunc(m.mapWindow, func() { m.mapWindowElapsed(id) })
		}
		active, registered = len(r.matches), len(r.players)
	})
	if err != nil {
		return nil, err
	}
	if busy != nil {
		return nil, busy
	}

	metrics.RecordMatchCreated()
	metrics.UpdateActiveMatches(active)
	metrics.UpdateRegisteredPlayers(registered)

	for _, p := range mt.Players() {
		m.enqueue(ctx, model.FlagJob(model.FlagUpdate{PlayerID: p.ID, Active: true, Registered: true}))
	}
	for _, v := range mt.MapCandidates() {
		m.notify(ctx, tallyNotice(model.NoticeVoteOpened, mt.ID(), 0, v.Tally()))
	}

	m.logger.Info(ctx, "match created",
		logger.String("match_id", mt.ID()),
		logger.Int("team_a_avg", ta.AverageRating()),
		logger.Int("team_b_avg", tb.AverageRating()),
	)
	return mt, nil
}

// fetch loads the players concurrently, keeping the order of ids.
func (m *Manager) fetch(ctx context.Context, ids []uint64) ([]model.Player, error) {
	players := make([]model.Player, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			p, err := m.store.GetPlayer(gctx, id)
			if err != nil {
				return fmt.Errorf("player %d: %w", id, err)
			}
			if !p.Registered {
				return fmt.Errorf("player %d: %w", id, ErrNotRegistered)
			}
			players[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return players, nil
}

// candidates picks the next window of the map pool.
func (m *Manager) candidates() []model.GameMap {
	n := m.mapCandidates
	if n > len(m.mapPool) {
		n = len(m.mapPool)
	}
	if n == 0 {
		return nil
	}
	offset := int(m.mapOffset.Add(1)-1) % len(m.mapPool)
	out := make([]model.GameMap, n)
	for i := range out {
		out[i] = m.mapPool[(offset+i)%len(m.mapPool)]
	}
	return out
}

// MatchOfPlayer returns the match the player is registered in. The result
// is absent when the player is in no match or the manager has stopped.
func (m *Manager) MatchOfPlayer(ctx context.Context, playerID uint64) (*match.Match, bool) {
	var mt *match.Match
	if err := m.do(ctx, func(r *registry) { mt = r.players[playerID] }); err != nil {
		return nil, false
	}
	return mt, mt != nil
}

// Match returns a registered match by id.
func (m *Manager) Match(ctx context.Context, matchID string) (*match.Match, error) {
	var mt *match.Match
	if err := m.do(ctx, func(r *registry) { mt = r.matches[matchID] }); err != nil {
		return nil, err
	}
	if mt == nil {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrMatchNotFound)
	}
	return mt, nil
}

// RaiseVote opens a terminating vote on req.ChannelID and locks the channel.
func (m *Manager) RaiseVote(ctx context.Context, req RaiseRequest) (*vote.Vote, error) {
	mt, err := m.Match(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}
	v, err := mt.NewVote(req.Kind, req.ProposedBy, req.Subject, req.Proposal)
	if err != nil {
		return nil, err
	}
	if err := mt.RaiseVote(req.ChannelID, v); err != nil {
		return nil, err
	}

	metrics.RecordVoteRaised(req.Kind.String())
	m.notify(ctx, model.Notice{Kind: model.NoticeChannelLocked, MatchID: mt.ID(), ChannelID: req.ChannelID})
	m.notify(ctx, tallyNotice(model.NoticeVoteOpened, mt.ID(), req.ChannelID, v.Tally()))
	return v, nil
}

// Cast records a ballot on the vote open in the player's match on
// b.ChannelID. The ballot that decides the vote frees the channel and, for
// a pass, settles the match.
func (m *Manager) Cast(ctx context.Context, b Ballot) (CastResult, error) {
	mt, ok := m.MatchOfPlayer(ctx, b.PlayerID)
	if !ok {
		return CastResult{}, fmt.Errorf("player %d: %w", b.PlayerID, ErrPlayerNotInMatch)
	}
	if mt.Resolved() {
		return CastResult{}, match.ErrMatchResolved
	}
	v, err := mt.GetVote(b.ChannelID)
	if err != nil {
		return CastResult{}, err
	}

	var resolved bool
	switch b.Choice {
	case ChoiceFor:
		resolved, err = v.CastFor(b.PlayerID)
	case ChoiceAgainst:
		resolved, err = v.CastAgainst(b.PlayerID)
	default:
		err = ErrInvalidChoice
	}
	if err != nil {
		metrics.RecordBallot(v.Kind().String(), "rejected")
		return CastResult{}, err
	}
	metrics.RecordBallot(v.Kind().String(), b.Choice.String())

	res := CastResult{MatchID: mt.ID(), Tally: v.Tally(), Resolved: resolved}
	if !resolved {
		m.notify(ctx, tallyNotice(model.NoticeTallyUpdated, mt.ID(), b.ChannelID, res.Tally))
		return res, nil
	}

	// The ballot is consumed; the rest must finish even if the caller leaves.
	ctx = context.WithoutCancel(ctx)
	mt.RemoveVote(b.ChannelID)
	metrics.RecordVoteResolved(v.Kind().String(), v.State().String())
	kind, text := model.NoticeVoteFailed, "Vote Failed!"
	if v.State() == vote.StatePassed {
		kind, text = model.NoticeVotePassed, "Vote Passed!"
	}
	n := tallyNotice(kind, mt.ID(), b.ChannelID, res.Tally)
	n.Text = text
	m.notify(ctx, n)
	m.notify(ctx, model.Notice{Kind: model.NoticeChannelRestored, MatchID: mt.ID(), ChannelID: b.ChannelID})

	if v.State() == vote.StatePassed && v.Kind().Terminating() {
		res.Applied, err = m.processMatch(ctx, mt, v, b.ChannelID)
	}
	return res, err
}

// CastMap backs a map candidate. Once every participant has backed one the
// map is decided.
func (m *Manager) CastMap(ctx context.Context, playerID uint64, candidate int) (*match.Match, error) {
	mt, ok := m.MatchOfPlayer(ctx, playerID)
	if !ok {
		return nil, fmt.Errorf("player %d: %w", playerID, ErrPlayerNotInMatch)
	}
	allIn, err := mt.CastMap(playerID, candidate)
	if err != nil {
		metrics.RecordBallot(vote.KindMapPick.String(), "rejected")
		return nil, err
	}
	metrics.RecordBallot(vote.KindMapPick.String(), ChoiceFor.String())
	m.notify(ctx, tallyNotice(model.NoticeTallyUpdated, mt.ID(), 0, mt.MapCandidates()[candidate].Tally()))

	if allIn {
		if _, err := m.DecideMap(ctx, mt.ID()); err != nil && !errors.Is(err, match.ErrWrongPhase) {
			return mt, err
		}
	}
	return mt, nil
}

// RemoveMapBallot withdraws the player's map ballot.
func (m *Manager) RemoveMapBallot(ctx context.Context, playerID uint64) (*match.Match, error) {
	mt, ok := m.MatchOfPlayer(ctx, playerID)
	if !ok {
		return nil, fmt.Errorf("player %d: %w", playerID, ErrPlayerNotInMatch)
	}
	if _, err := mt.RemoveMapBallot(playerID); err != nil {
		return nil, err
	}
	return mt, nil
}

// DecideMap closes the map phase of a match.
func (m *Manager) DecideMap(ctx context.Context, matchID string) (model.GameMap, error) {
	mt, err := m.Match(ctx, matchID)
	if err != nil {
		return model.GameMap{}, err
	}
	gm, err := mt.DecideMap()
	if err != nil {
		return model.GameMap{}, err
	}
	_ = m.do(ctx, func(r *registry) {
		if t, ok := r.timers[matchID]; ok {
			t.Stop()
			delete(r.timers, matchID)
		}
	})
	m.notify(ctx, model.Notice{Kind: model.NoticeMapDecided, MatchID: matchID, Title: vote.KindMapPick.Title(), Text: gm.Label()})
	m.logger.Info(ctx, "map decided", logger.String("match_id", matchID), logger.String("map", gm.Label()))
	return gm, nil
}

func (m *Manager) mapWindowElapsed(matchID string) {
	ctx := context.Background()
	if _, err := m.DecideMap(ctx, matchID); err != nil && !errors.Is(err, match.ErrWrongPhase) {
		m.logger.Debug(ctx, "map window elapsed", logger.String("match_id", matchID), logger.Error(err))
	}
}

// Start begins a match that has no map phase.
func (m *Manager) Start(ctx context.Context, matchID string) error {
	mt, err := m.Match(ctx, matchID)
	if err != nil {
		return err
	}
	return mt.Start()
}

// ProcessMatch applies the outcome of a passed terminating vote. It reports
// true for the one call that resolved the match; a later call for the same
// match is a no-op that reports false.
func (m *Manager) ProcessMatch(ctx context.Context, matchID string, v *vote.Vote, channelID uint64) (bool, error) {
	if v == nil || !v.Kind().Terminating() || v.State() != vote.StatePassed {
		return false, match.ErrInvalidVote
	}
	mt, err := m.Match(ctx, matchID)
	if err != nil {
		return false, err
	}
	return m.processMatch(context.WithoutCancel(ctx), mt, v, channelID)
}

func (m *Manager) processMatch(ctx context.Context, mt *match.Match, v *vote.Vote, channelID uint64) (bool, error) {
	matchID := mt.ID()
	if !mt.Resolve(v) {
		metrics.RecordDuplicateResolution()
		m.logger.Debug(ctx, "match already resolved",
			logger.String("match_id", matchID),
			logger.Uint64("vote_id", v.ID()),
			logger.Uint64("channel_id", channelID),
		)
		return false, nil
	}

	outcome, winner := mt.Outcome()
	metrics.RecordMatchResolved(outcome.String())
	m.logger.Info(ctx, "match resolved",
		logger.String("match_id", matchID),
		logger.String("outcome", outcome.String()),
		logger.String("winner", winner.String()),
		logger.Uint64("channel_id", channelID),
	)
	return true, m.settle(ctx, mt)
}

// RetrySettlement persists the settlement of a resolved match whose earlier
// attempt failed. It is a no-op for a settled match.
func (m *Manager) RetrySettlement(ctx context.Context, matchID string) error {
	mt, err := m.Match(ctx, matchID)
	if err != nil {
		return err
	}
	if !mt.Resolved() {
		return fmt.Errorf("match %s: %w", matchID, ErrNotResolved)
	}
	if mt.Settled() {
		return nil
	}
	if !m.track() {
		return ErrStopped
	}
	defer m.inflight.Done()
	if !m.recorder.Claim(ctx, mt.ID()) {
		if mt.Settled() {
			return nil
		}
		return fmt.Errorf("match %s: %w", matchID, ErrSettlementInProgress)
	}
	return m.persist(ctx, mt)
}

// settle writes every new rating and only then unregisters the players.
func (m *Manager) settle(ctx context.Context, mt *match.Match) error {
	if !m.track() {
		return ErrStopped
	}
	defer m.inflight.Done()

	if !m.recorder.Claim(ctx, mt.ID()) {
		metrics.RecordDuplicateResolution()
		return nil
	}
	return m.persist(ctx, mt)
}

// persist runs a claimed settlement. A failure releases the claim.
func (m *Manager) persist(ctx context.Context, mt *match.Match) error {
	id := mt.ID()
	start := time.Now()

	changes := mt.Settlement(m.calc)
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range changes {
		g.Go(func() error {
			if err := m.store.UpdateRating(gctx, c.PlayerID, c.After); err != nil {
				return fmt.Errorf("player %d: %w", c.PlayerID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.recorder.Release(ctx, id)
		metrics.RecordSettlementFailure()
		metrics.RecordErrorByComponent("manager", "settlement")
		m.logger.Error(ctx, "settlement failed", logger.String("match_id", id), logger.Error(err))
		return fmt.Errorf("match %s: %w: %w", id, ErrSettlement, err)
	}
	mt.MarkSettled()

	var active, registered int
	err := m.do(context.WithoutCancel(ctx), func(r *registry) {
		for _, pid := range mt.PlayerIDs() {
			if r.players[pid] == mt {
				delete(r.players, pid)
			}
		}
		delete(r.matches, id)
		if t, ok := r.timers[id]; ok {
			t.Stop()
			delete(r.timers, id)
		}
		active, registered = len(r.matches), len(r.players)
	})
	if err != nil {
		return err
	}

	metrics.UpdateActiveMatches(active)
	metrics.UpdateRegisteredPlayers(registered)
	metrics.RecordSettlementLatency(float64(time.Since(start).Microseconds()) / 1000)

	for _, pid := range mt.PlayerIDs() {
		m.enqueue(ctx, model.FlagJob(model.FlagUpdate{PlayerID: pid, Active: false, Registered: true}))
	}
	m.notify(ctx, model.Notice{Kind: model.NoticeMatchResolved, MatchID: id, Text: resultText(mt)})
	m.logger.Info(ctx, "match settled", logger.String("match_id", id), logger.Int("changes", len(changes)))
	return nil
}

func (m *Manager) track() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopping {
		return false
	}
	m.inflight.Add(1)
	return true
}

// Stats summarizes the registry.
func (m *Manager) Stats(ctx context.Context) (types.Stats, error) {
	var s types.Stats
	err := m.do(ctx, func(r *registry) {
		s.ActiveMatches = len(r.matches)
		s.RegisteredPlayers = len(r.players)
		for _, mt := range r.matches {
			if mt.Resolved() && !mt.Settled() {
				s.PendingSettlement++
			}
		}
	})
	return s, err
}

// Stop waits for in-flight settlements, then stops the actor. Every later
// call fails with ErrStopped.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopping = true
	m.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
	case <-ctx.Done():
		err = fmt.Errorf("drain settlements: %w", ctx.Err())
	}

	m.stopOnce.Do(func() { close(m.quit) })
	<-m.done
	for id, t := range m.reg.timers {
		t.Stop()
		delete(m.reg.timers, id)
	}
	m.logger.Info(ctx, "match manager stopped")
	return err
}

func (m *Manager) notify(ctx context.Context, n model.Notice) { //nolint:gocritic // hugeParam: notices travel by value
	if n.At.IsZero() {
		n.At = m.now().UTC()
	}
	m.enqueue(ctx, model.NoticeJob(n))
}

func (m *Manager) enqueue(ctx context.Context, j model.Job) { //nolint:gocritic // hugeParam: jobs travel by value
	if m.jobs == nil {
		return
	}
	if !m.jobs.Enqueue(ctx, j) {
		m.logger.Debug(ctx, "outbound job dropped", logger.String("kind", string(j.Kind)))
	}
}

func tallyNotice(kind model.NoticeKind, matchID string, channelID uint64, t vote.Tally) model.Notice { //nolint:gocritic // hugeParam: tallies are snapshots
	return model.Notice{
		Kind:      kind,
		MatchID:   matchID,
		ChannelID: channelID,
		Title:     t.Title,
		Proposal:  t.Proposal,
		For:       t.For,
		Against:   t.Against,
		Total:     t.Total,
		Required:  t.Required,
	}
}

func resultText(mt *match.Match) string {
	outcome, winner := mt.Outcome()
	switch outcome {
	case match.OutcomeCompleted:
		return "Team " + winner.String() + " wins"
	case match.OutcomeForfeitedBySide:
		return "Team " + winner.Other().String() + " forfeits, Team " + winner.String() + " wins"
	default:
		return "Match cancelled"
	}
}
