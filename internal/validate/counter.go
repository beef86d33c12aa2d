package validate

import "sync"

// DefaultFailureLimit is the number of consecutive validation failures
// tolerated on a single tool before the wait is aborted.
const DefaultFailureLimit = 5

// FailureCounter tracks consecutive validation failures for one tool.
// State is scoped to the owning coordinator instance, never process-wide.
type FailureCounter struct {
	mu    sync.Mutex
	limit int
	count int
}

// NewFailureCounter creates a counter with the given limit. A limit <= 0
// falls back to DefaultFailureLimit.
func NewFailureCounter(limit int) *FailureCounter {
	if limit <= 0 {
		limit = DefaultFailureLimit
	}
	return &FailureCounter{limit: limit}
}

// Fail records one failure and reports whether the limit has been reached.
func (c *FailureCounter) Fail() (exhausted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return c.count >= c.limit
}

// Reset clears the consecutive-failure count after a successful validation.
func (c *FailureCounter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count = 0
}

// Count returns the current consecutive-failure count.
func (c *FailureCounter) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}
