package delegate

import "sync"

// CompletionGate is a one-shot, race-safe completion slot for a single child
// unit of work. A model may call the same reporting tool more than once; only
// the first settle wins and later attempts are ignored.
type CompletionGate struct {
	mu      sync.Mutex
	settled bool
	result  *ChildResult
	fault   error
	done    chan struct{}
}

// NewCompletionGate creates an unsettled gate.
func NewCompletionGate() *CompletionGate {
	return &CompletionGate{done: make(chan struct{})}
}

// TrySet settles the gate with a child result. It succeeds only on the first
// call; subsequent calls return false and leave the gate unchanged.
func (g *CompletionGate) TrySet(result ChildResult) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.settled {
		return false
	}
	g.settled = true
	g.result = &result
	close(g.done)
	return true
}

// TrySetFault settles the gate with a fatal error, ending the wait. Used when
// the validation-failure threshold is exceeded.
func (g *CompletionGate) TrySetFault(err error) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.settled {
		return false
	}
	g.settled = true
	g.fault = err
	close(g.done)
	return true
}

// Done returns a channel closed once the gate settles.
func (g *CompletionGate) Done() <-chan struct{} {
	return g.done
}

// Settled reports whether the gate has been settled.
func (g *CompletionGate) Settled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settled
}

// Outcome returns the settled result or fault. Valid only after Done is closed.
func (g *CompletionGate) Outcome() (*ChildResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result, g.fault
}
