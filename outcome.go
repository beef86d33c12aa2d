package delegate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Usage holds token counts and cost reported by the host for a child session.
// Hosts that do not account usage leave it zero.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	Cost         decimal.Decimal
}

// Add returns the element-wise sum of two usages.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		Cost:         u.Cost.Add(other.Cost),
	}
}

// ChildResult is the final outcome of one child unit of work. It is produced
// exactly once per child; the set-once invariant is enforced by CompletionGate.
type ChildResult struct {
	Success      bool
	ErrorMessage string
	Result       string
	Usage        Usage
}

// WorkItem is one unit of parallel execution: a named parameter value derived
// from the request.
type WorkItem struct {
	Name  string
	Value any
}

// WorkItemOutcome wraps a ChildResult with per-item run metadata. Err carries
// an unexpected per-item failure; it never aborts sibling items.
type WorkItemOutcome struct {
	Name      string
	Value     any
	Result    *ChildResult
	Err       error
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns the item's wall-clock run time.
func (o WorkItemOutcome) Duration() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}

// IsSuccess reports whether the item produced a successful child result.
func (o WorkItemOutcome) IsSuccess() bool {
	return o.Result != nil && o.Result.Success
}

// AggregateOutcome combines the outcomes of one parallel run.
// Success holds iff at least one item succeeded, regardless of how many failed.
type AggregateOutcome struct {
	Success        bool
	ErrorMessage   string
	Outcomes       []WorkItemOutcome
	Strategy       ResultStrategy
	TotalCount     int
	CompletedCount int
	FailedCount    int
	StartTime      time.Time
	EndTime        time.Time
	TotalUsage     Usage
}

// Summary renders the human-readable multi-outcome report returned to the
// delegating caller.
func (a *AggregateOutcome) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Parallel execution (%s): %d/%d succeeded, %d failed in %s",
		a.Strategy, a.CompletedCount, a.TotalCount, a.FailedCount,
		a.EndTime.Sub(a.StartTime).Round(time.Millisecond))
	if !a.Success && a.ErrorMessage != "" {
		fmt.Fprintf(&b, ": %s", a.ErrorMessage)
	}
	for _, o := range a.Outcomes {
		b.WriteString("\n")
		b.WriteString(formatOutcomeLine(o))
	}
	return b.String()
}

func formatOutcomeLine(o WorkItemOutcome) string {
	head := fmt.Sprintf("- %s=%v (%s): ", o.Name, o.Value, o.Duration().Round(time.Millisecond))
	switch {
	case o.IsSuccess():
		return head + "succeeded: " + o.Result.Result
	case o.Err != nil:
		return head + "failed: " + o.Err.Error()
	case o.Result != nil:
		return head + "failed: " + o.Result.ErrorMessage
	}
	return head + "failed: no result"
}
