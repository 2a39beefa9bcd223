package rating

import (
	"math"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
)

const (
	defaultKFactor = 32
	defaultFloor   = 0
	eloScale       = 400.0
)

// Option configures a Calculator.
type Option func(*Calculator)

// WithKFactor sets the maximum rating swing per match.
func WithKFactor(k int) Option {
	return func(c *Calculator) {
		if k > 0 {
			c.kFactor = k
		}
	}
}

// WithFloor sets the lowest rating a player can drop to.
func WithFloor(floor int) Option {
	return func(c *Calculator) {
		if floor >= 0 {
			c.floor = floor
		}
	}
}

// Change is the rating update for one player.
type Change struct {
	PlayerID uint64
	Before   int
	After    int
}

// Delta returns After - Before.
func (c Change) Delta() int { return c.After - c.Before }

// Calculator computes team Elo rating changes.
type Calculator struct {
	kFactor int
	floor   int
}

// NewCalculator returns a Calculator with K=32 and floor 0 unless overridden.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{kFactor: defaultKFactor, floor: defaultFloor}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Expected returns the expected score of a side rated a against a side rated b.
func Expected(a, b int) float64 {
	return 1 / (1 + math.Pow(10, float64(b-a)/eloScale))
}

// Delta returns the points the winning side takes from the losing side.
// It is at least 1 so a settled match always moves ratings.
func (c *Calculator) Delta(winnerAvg, loserAvg int) int {
	d := int(math.Round(float64(c.kFactor) * (1 - Expected(winnerAvg, loserAvg))))
	if d < 1 {
		d = 1
	}
	return d
}

// Changes returns the new rating of every player. Winners gain the team
// delta, losers lose it, clamped at the floor.
func (c *Calculator) Changes(winners, losers []model.Player, winnerAvg, loserAvg int) []Change {
	d := c.Delta(winnerAvg, loserAvg)
	out := make([]Change, 0, len(winners)+len(losers))
	for _, p := range winners {
		out = append(out, Change{PlayerID: p.ID, Before: p.Rating, After: p.Rating + d})
	}
	for _, p := range losers {
		after := p.Rating - d
		if after < c.floor {
			after = c.floor
		}
		out = append(out, Change{PlayerID: p.ID, Before: p.Rating, After: after})
	}
	return out
}
