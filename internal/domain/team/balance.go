package team

import (
	"sort"

	"github.com/sbwgg/Checker-bot/internal/domain/model"
)

// Pools up to this size are searched exhaustively.
const maxExhaustivePool = 16

// Balance splits pool into two equal rosters whose rating sums are as close
// as possible. The first player always lands on side A so the result is
// deterministic for a given pool order.
func Balance(pool []model.Player) (a, b []model.Player, err error) {
	if len(pool) < 2 || len(pool)%2 != 0 {
		return nil, nil, ErrUnevenPool
	}
	if len(pool) > maxExhaustivePool {
		a, b = snake(pool)
		return a, b, nil
	}

	n := len(pool) / 2
	total := 0
	for _, p := range pool {
		total += p.Rating
	}

	best := -1
	var bestMask uint32
	// mask bit i set means pool[i] is on side A
	var walk func(start, depth, sum int, mask uint32)
	walk = func(start, depth, sum int, mask uint32) {
		if depth == n-1 {
			gap := total - 2*sum
			if gap < 0 {
				gap = -gap
			}
			if best < 0 || gap < best {
				best = gap
				bestMask = mask
			}
			return
		}
		for i := start; i <= len(pool)-(n-1-depth); i++ {
			walk(i+1, depth+1, sum+pool[i].Rating, mask|1<<uint(i))
		}
	}
	walk(1, 0, pool[0].Rating, 1)

	for i, p := range pool {
		if bestMask&(1<<uint(i)) != 0 {
			a = append(a, p)
		} else {
			b = append(b, p)
		}
	}
	return a, b, nil
}

// snake deals players best-first in A B B A order.
func snake(pool []model.Player) (a, b []model.Player) {
	sorted := make([]model.Player, len(pool))
	copy(sorted, pool)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Rating > sorted[j].Rating })
	for i, p := range sorted {
		if i%4 == 0 || i%4 == 3 {
			a = append(a, p)
		} else {
			b = append(b, p)
		}
	}
	return a, b
}
