package drill

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sbwgg/Checker-bot/internal/domain/types"
)

// verifyRound checks that every winner gained the same positive delta and
// that no loser lost more than it. Losers can lose less at the rating floor.
func verifyRound(mv types.MatchView, winner string, before, after map[uint64]int) error { //nolint:gocritic // hugeParam: views are snapshots
	if winner != "A" && winner != "B" {
		return fmt.Errorf("applied ballot carried no winning side (%q)", winner)
	}

	delta := 0
	for _, t := range mv.Teams {
		if t.Side != winner {
			continue
		}
		for _, p := range t.Players {
			d := after[p.ID] - before[p.ID]
			if d <= 0 {
				return fmt.Errorf("winner %d moved by %d", p.ID, d)
			}
			if delta != 0 && d != delta {
				return fmt.Errorf("winner %d moved by %d, expected %d", p.ID, d, delta)
			}
			delta = d
		}
	}
	if delta == 0 {
		return fmt.Errorf("team %s not found in match %s", winner, mv.ID)
	}

	for _, t := range mv.Teams {
		if t.Side == winner {
			continue
		}
		for _, p := range t.Players {
			d := after[p.ID] - before[p.ID]
			if d > 0 || -d > delta {
				return fmt.Errorf("loser %d moved by %d, winners moved by %d", p.ID, d, delta)
			}
		}
	}
	return nil
}

// verifyReleased checks that no player is still registered in a match.
func verifyReleased(ctx context.Context, client *Client, ids []uint64) error {
	for _, id := range ids {
		_, err := client.Do(ctx, http.MethodGet, "/players/"+strconv.FormatUint(id, 10)+"/match", nil, nil)
		switch {
		case err == nil:
			return fmt.Errorf("player %d is still in a match", id)
		case IsCode(err, "not_in_match"):
		default:
			return fmt.Errorf("match lookup for %d: %w", id, err)
		}
	}
	return nil
}
