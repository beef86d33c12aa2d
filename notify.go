package delegate

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// notifier delivers out-of-band per-item completion messages to the
// orchestrating session under StrategyStreamIndividual. Deliveries run in
// tracked goroutines so the orchestrator can drain them deterministically;
// delivery failures are logged, never fatal.
type notifier struct {
	parent SessionHandle
	log    *zap.Logger
	wg     sync.WaitGroup
}

func newNotifier(parent SessionHandle, log *zap.Logger) *notifier {
	return &notifier{parent: parent, log: log}
}

// Notify sends a completion summary for one work item to the parent session.
func (n *notifier) Notify(ctx context.Context, outcome WorkItemOutcome) {
	if n.parent == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		msg := "Parallel subtask update: " + formatOutcomeLine(outcome)
		if err := n.parent.SendMessage(ctx, KindStatusUpdate, msg); err != nil {
			n.log.Warn("failed to notify parent session of work item completion",
				zap.String("item", outcome.Name),
				zap.Error(err))
		}
	}()
}

// Wait blocks until all in-flight notifications have completed.
func (n *notifier) Wait() {
	n.wg.Wait()
}
