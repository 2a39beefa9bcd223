package dedupe

// Option configures the in-memory recorder.
type Option func(*memoryRecorder)

// WithMaxSize bounds the number of remembered claims. Zero or negative
// keeps every claim.
func WithMaxSize(maxSize int) Option {
	return func(r *memoryRecorder) {
		r.maxSize = maxSize
	}
}
