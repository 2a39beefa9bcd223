package manager

import (
	"sort"
	"time"

	"github.com/sbwgg/Checker-bot/internal/domain/dedupe"
	"github.com/sbwgg/Checker-bot/internal/domain/model"
	"github.com/sbwgg/Checker-bot/internal/domain/rating"
	"github.com/sbwgg/Checker-bot/pkg/logger"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithCalculator sets the rating calculator used for settlements.
func WithCalculator(c *rating.Calculator) Option {
	return func(m *Manager) {
		if c != nil {
			m.calc = c
		}
	}
}

// WithRecorder sets the settlement claim recorder.
func WithRecorder(r dedupe.Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.recorder = r
		}
	}
}

// WithMapPool sets the maps offered during the map phase. The pool is kept
// sorted by name.
func WithMapPool(maps []model.GameMap) Option {
	return func(m *Manager) {
		pool := append([]model.GameMap(nil), maps...)
		sort.SliceStable(pool, func(i, j int) bool { return pool[i].Name < pool[j].Name })
		m.mapPool = pool
	}
}

// WithMapCandidates sets how many maps each match votes on. Zero skips the
// map phase.
func WithMapCandidates(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.mapCandidates = n
		}
	}
}

// WithMapWindow decides the map automatically once d has elapsed after
// match creation. Zero disables the timer.
func WithMapWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.mapWindow = d
		}
	}
}

// WithTeamSize requires every roster to have exactly n players. Zero
// accepts any equal sizes.
func WithTeamSize(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.teamSize = n
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}
