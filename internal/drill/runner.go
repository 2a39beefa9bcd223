package drill

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sbwgg/Checker-bot/internal/domain/types"
	"github.com/sbwgg/Checker-bot/pkg/logger"
)

// ErrNotSettledOnce is returned when a round was applied zero or several times.
var ErrNotSettledOnce = errors.New("match was not settled exactly once")

// rejectedCodes are the answers a ballot may legitimately get once another
// ballot has already resolved the match.
var rejectedCodes = []string{"vote_closed", "match_resolved", "not_in_match", "no_active_vote"}

// Run executes every round of the drill.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("drill")
	client := NewClient(config.BaseURL, config.Timeout)

	log.Info(ctx, "starting vote drill",
		logger.String("baseURL", config.BaseURL),
		logger.Int("teamSize", config.TeamSize),
		logger.Int("rounds", config.Rounds),
		logger.Int("workers", config.Workers))

	if _, err := client.Do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	ids := playerIDs(config)
	if err := registerPlayers(ctx, client, ids); err != nil {
		return stats, fmt.Errorf("player registration failed: %w", err)
	}

	for round := 0; round < config.Rounds; round++ {
		if err := playRound(ctx, config, client, ids, round, stats); err != nil {
			return stats, fmt.Errorf("round %d: %w", round+1, err)
		}
		stats.Rounds++
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func playerIDs(config *Config) []uint64 {
	ids := make([]uint64, 2*config.TeamSize)
	for i := range ids {
		ids[i] = config.FirstPlayerID + uint64(i)
	}
	return ids
}

func registerPlayers(ctx context.Context, client *Client, ids []uint64) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		g.Go(func() error {
			_, err := client.Do(ctx, http.MethodPost, "/players",
				registerRequest{ID: id, Name: "drill-" + strconv.FormatUint(id, 10)}, nil)
			return err
		})
	}
	return g.Wait()
}

func ratings(ctx context.Context, client *Client, ids []uint64) (map[uint64]int, error) {
	out := make(map[uint64]int, len(ids))
	for _, id := range ids {
		var e types.LadderEntry
		if _, err := client.Do(ctx, http.MethodGet, "/players/"+strconv.FormatUint(id, 10)+"/rank", nil, &e); err != nil {
			return nil, err
		}
		out[id] = e.Rating
	}
	return out, nil
}

func playRound(ctx context.Context, config *Config, client *Client, ids []uint64, round int, stats *Stats) error {
	log := logger.Get().Named("drill")

	before, err := ratings(ctx, client, ids)
	if err != nil {
		return fmt.Errorf("read ratings: %w", err)
	}

	var mv types.MatchView
	if _, err := client.Do(ctx, http.MethodPost, "/matches", createMatchRequest{Pool: ids}, &mv); err != nil {
		return fmt.Errorf("create match: %w", err)
	}

	// A match with map candidates leaves Forming when its map is decided.
	phase := "/start"
	if len(mv.MapVotes) > 0 {
		phase = "/maps/decide"
	}
	if _, err := client.Do(ctx, http.MethodPost, "/matches/"+mv.ID+phase, nil, nil); err != nil {
		return fmt.Errorf("leave forming: %w", err)
	}

	channels := []uint64{
		config.ChannelBase + uint64(2*round) + 1,
		config.ChannelBase + uint64(2*round) + 2,
	}
	for i, side := range []string{"A", "B"} {
		req := raiseVoteRequest{
			ChannelID:  channels[i],
			Kind:       "end_match",
			ProposedBy: ids[0],
			Subject:    side,
			Proposal:   "Team " + side + " won",
		}
		if _, err := client.Do(ctx, http.MethodPost, "/matches/"+mv.ID+"/votes", req, nil); err != nil {
			return fmt.Errorf("raise vote on %d: %w", channels[i], err)
		}
	}

	var (
		sent, accepted, rejected, applied atomic.Int64
		winner                            atomic.Value
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(config.Workers, 1))
	for _, ch := range channels {
		for _, id := range ids {
			g.Go(func() error {
				sent.Add(1)
				var res ballotResponse
				_, err := client.Do(gctx, http.MethodPost, "/ballots",
					ballotRequest{PlayerID: id, ChannelID: ch, Choice: "for"}, &res)
				switch {
				case err == nil:
					accepted.Add(1)
					if res.Applied {
						applied.Add(1)
						winner.Store(res.Vote.Subject)
					}
				case IsCode(err, rejectedCodes...):
					rejected.Add(1)
				default:
					return fmt.Errorf("ballot %d on %d: %w", id, ch, err)
				}
				if config.Verbose {
					log.Debug(gctx, "ballot sent",
						logger.Uint64("player", id),
						logger.Uint64("channel", ch),
						logger.Bool("applied", res.Applied))
				}
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.BallotsSent += int(sent.Load())
	stats.BallotsAccepted += int(accepted.Load())
	stats.BallotsRejected += int(rejected.Load())
	stats.Applied += int(applied.Load())

	if applied.Load() != 1 {
		return fmt.Errorf("%w: applied %d times", ErrNotSettledOnce, applied.Load())
	}

	after, err := ratings(ctx, client, ids)
	if err != nil {
		return fmt.Errorf("read ratings: %w", err)
	}
	side, _ := winner.Load().(string)
	if err := verifyRound(mv, side, before, after); err != nil {
		return err
	}
	if err := verifyReleased(ctx, client, ids); err != nil {
		return err
	}

	log.Info(ctx, "round settled",
		logger.Int("round", round+1),
		logger.String("match", mv.ID),
		logger.String("winner", side),
		logger.Int("ballots", int(sent.Load())))
	return nil
}

// displayFinalStats logs the final drill statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var ballotsPerSecond float64
	if stats.Duration > 0 {
		ballotsPerSecond = float64(stats.BallotsSent) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("rounds", stats.Rounds),
		logger.Int("ballotsSent", stats.BallotsSent),
		logger.Int("ballotsAccepted", stats.BallotsAccepted),
		logger.Int("ballotsRejected", stats.BallotsRejected),
		logger.Int("applied", stats.Applied),
		logger.Duration("duration", stats.Duration),
		logger.Float64("ballotsPerSecond", ballotsPerSecond))
}
