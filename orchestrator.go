package delegate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// DispatchFunc runs one work item to completion and returns its child result.
// The Engine's dispatch creates a child session and drives it through a
// Coordinator; tests substitute lighter implementations.
type DispatchFunc func(ctx context.Context, item WorkItem) (*ChildResult, error)

// Orchestrator fans out work items under a bounded concurrency limit and
// aggregates their outcomes per the configured result strategy.
type Orchestrator struct {
	cfg    *ParallelConfig
	log    *zap.Logger
	notify *notifier
}

// NewOrchestrator creates an orchestrator for one parallel run. The parent
// session receives per-item completion notifications under
// StrategyStreamIndividual; it may be nil when no notifications are wanted.
func NewOrchestrator(cfg *ParallelConfig, log *zap.Logger, parent SessionHandle) *Orchestrator {
	log = log.With(zap.String("run_id", GenerateID(PrefixRun)))
	return &Orchestrator{
		cfg:    cfg.normalized(),
		log:    log,
		notify: newNotifier(parent, log),
	}
}

// Run executes all work items and combines their outcomes. Per-item failures
// are isolated: an unexpected error fails that item's outcome without
// aborting siblings. Only an unsupported strategy aborts the whole run.
func (o *Orchestrator) Run(ctx context.Context, items []WorkItem, dispatch DispatchFunc) (*AggregateOutcome, error) {
	switch o.cfg.ResultStrategy {
	case StrategyWaitForAll, StrategyStreamIndividual, StrategyFirstResultWins:
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedStrategy, int(o.cfg.ResultStrategy))
	}

	effective := o.cfg.MaxConcurrency
	if effective > len(items) {
		effective = len(items)
	}
	if effective < 1 {
		effective = 1
	}
	o.log.Info("starting parallel execution",
		zap.Int("items", len(items)),
		zap.Int("concurrency", effective),
		zap.Stringer("strategy", o.cfg.ResultStrategy))

	sem := semaphore.NewWeighted(int64(effective))
	start := time.Now()

	if o.cfg.ResultStrategy == StrategyFirstResultWins {
		return o.runFirstWins(ctx, items, dispatch, sem, start)
	}
	return o.runAll(ctx, items, dispatch, sem, start)
}

// runItem executes one work item with its per-item timeout, converting
// panics and errors into a failed outcome.
func (o *Orchestrator) runItem(ctx context.Context, item WorkItem, dispatch DispatchFunc) WorkItemOutcome {
	out := WorkItemOutcome{Name: item.Name, Value: item.Value, StartTime: time.Now()}
	log := o.log.With(
		zap.String("item_id", GenerateID(PrefixItem)),
		zap.String("item", item.Name))
	log.Debug("starting work item")

	result, err := func() (result *ChildResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("delegate: work item panicked: %v", r)
			}
		}()
		itemCtx, cancel := context.WithTimeout(ctx, o.cfg.SessionTimeout)
		defer cancel()
		return dispatch(itemCtx, item)
	}()

	out.EndTime = time.Now()
	if err != nil {
		out.Err = err
		out.Result = &ChildResult{Success: false, ErrorMessage: err.Error()}
		log.Warn("work item failed", zap.Error(err))
		return out
	}
	out.Result = result
	log.Debug("work item completed", zap.Bool("success", out.IsSuccess()))
	return out
}

// runAll implements WaitForAll and StreamIndividual: launch every item,
// await all, collect every outcome.
func (o *Orchestrator) runAll(ctx context.Context, items []WorkItem, dispatch DispatchFunc, sem *semaphore.Weighted, start time.Time) (*AggregateOutcome, error) {
	stream := o.cfg.ResultStrategy == StrategyStreamIndividual

	var (
		mu       sync.Mutex
		outcomes = make([]WorkItemOutcome, 0, len(items))
		wg       sync.WaitGroup
	)
	record := func(out WorkItemOutcome) {
		mu.Lock()
		outcomes = append(outcomes, out)
		mu.Unlock()
		if stream {
			o.notify.Notify(ctx, out)
		}
	}

	for _, item := range items {
		wg.Add(1)
		go func(item WorkItem) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				now := time.Now()
				record(WorkItemOutcome{
					Name: item.Name, Value: item.Value,
					StartTime: now, EndTime: now,
					Err:    err,
					Result: &ChildResult{Success: false, ErrorMessage: err.Error()},
				})
				return
			}
			defer sem.Release(1)
			record(o.runItem(ctx, item, dispatch))
		}(item)
	}
	wg.Wait()
	o.notify.Wait()

	// Run-level cancellation must surface as such, never as a failure summary.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Urge exhaustion is run-fatal, not a per-item failure.
	for _, out := range outcomes {
		if errors.Is(out.Err, ErrDanglingExhausted) {
			return nil, out.Err
		}
	}
	return o.aggregate(outcomes, len(items), start), nil
}

// runFirstWins launches every item and settles on the first success,
// cancelling the siblings best-effort. Early failures keep the run alive
// until a success arrives or everything has failed.
func (o *Orchestrator) runFirstWins(ctx context.Context, items []WorkItem, dispatch DispatchFunc, sem *semaphore.Weighted, start time.Time) (*AggregateOutcome, error) {
	runCtx, cancelAll := context.WithCancel(ctx)
	defer cancelAll()

	resultCh := make(chan WorkItemOutcome, len(items))
	for _, item := range items {
		go func(item WorkItem) {
			if err := sem.Acquire(runCtx, 1); err != nil {
				now := time.Now()
				resultCh <- WorkItemOutcome{
					Name: item.Name, Value: item.Value,
					StartTime: now, EndTime: now,
					Err:    err,
					Result: &ChildResult{Success: false, ErrorMessage: err.Error()},
				}
				return
			}
			defer sem.Release(1)
			resultCh <- o.runItem(runCtx, item, dispatch)
		}(item)
	}

	var failures []WorkItemOutcome
	for range items {
		out := <-resultCh
		if out.IsSuccess() {
			cancelAll()
			o.log.Info("first successful item wins, cancelling siblings",
				zap.String("item", out.Name),
				zap.Int("failures_observed", len(failures)))
			agg := o.aggregate([]WorkItemOutcome{out}, len(items), start)
			agg.FailedCount = len(failures)
			return agg, nil
		}
		if errors.Is(out.Err, ErrDanglingExhausted) {
			cancelAll()
			return nil, out.Err
		}
		failures = append(failures, out)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.aggregate(failures, len(items), start), nil
}

// aggregate folds outcomes into an AggregateOutcome. The run succeeds iff at
// least one item succeeded, regardless of how many failed.
func (o *Orchestrator) aggregate(outcomes []WorkItemOutcome, total int, start time.Time) *AggregateOutcome {
	agg := &AggregateOutcome{
		Outcomes:   outcomes,
		Strategy:   o.cfg.ResultStrategy,
		TotalCount: total,
		StartTime:  start,
		EndTime:    time.Now(),
	}
	for _, out := range outcomes {
		if out.IsSuccess() {
			agg.CompletedCount++
		} else {
			agg.FailedCount++
		}
		if out.Result != nil {
			agg.TotalUsage = agg.TotalUsage.Add(out.Result.Usage)
		}
	}
	agg.Success = agg.CompletedCount > 0
	if !agg.Success {
		agg.ErrorMessage = "all parallel sessions failed"
	}
	o.log.Info("parallel execution completed",
		zap.Int("total", agg.TotalCount),
		zap.Int("succeeded", agg.CompletedCount),
		zap.Int("failed", agg.FailedCount))
	return agg
}
