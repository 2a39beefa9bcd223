// Package dedupe tracks which matches have been settled so a settlement runs
// at most once per match id.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Recorder claims match ids for settlement.
type Recorder interface {
	// Claim atomically records id and reports true when the caller is the
	// first to claim it. A false result means another settlement owns id.
	Claim(ctx context.Context, id string) bool

	// Release forgets id so a failed settlement can be claimed again.
	Release(ctx context.Context, id string)

	// Claimed reports whether id is currently recorded.
	Claimed(ctx context.Context, id string) bool

	Size() int64
}

// memoryRecorder keeps claims in a map with insertion order in a list. In
// bounded mode the oldest claim is evicted once maxSize is reached.
type memoryRecorder struct {
	mu      sync.Mutex
	claims  map[string]*list.Element
	order   *list.List
	maxSize int
	size    atomic.Int64
}

// NewRecorder returns an in-memory Recorder.
func NewRecorder(opts ...Option) Recorder {
	r := &memoryRecorder{
		maxSize: 10000,
		claims:  make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *memoryRecorder) Claim(_ context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claims[id]; ok {
		return false
	}
	if r.maxSize > 0 && len(r.claims) >= r.maxSize {
		r.evictOldest()
	}
	r.claims[id] = r.order.PushBack(id)
	r.size.Add(1)
	return true
}

func (r *memoryRecorder) Release(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.claims[id]; ok {
		r.order.Remove(el)
		delete(r.claims, id)
		r.size.Add(-1)
	}
}

func (r *memoryRecorder) Claimed(_ context.Context, id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.claims[id]
	return ok
}

// evictOldest must be called with r.mu held.
func (r *memoryRecorder) evictOldest() {
	front := r.order.Front()
	if front == nil {
		return
	}
	r.order.Remove(front)
	delete(r.claims, front.Value.(string))
	r.size.Add(-1)
}

func (r *memoryRecorder) Size() int64 {
	return r.size.Load()
}
