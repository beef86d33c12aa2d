package delegate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func namedItems(names ...string) []WorkItem {
	items := make([]WorkItem, 0, len(names))
	for _, name := range names {
		items = append(items, WorkItem{Name: name, Value: name})
	}
	return items
}

func successDispatch(ctx context.Context, item WorkItem) (*ChildResult, error) {
	return &ChildResult{Success: true, Result: fmt.Sprintf("done:%s", item.Name)}, nil
}

func TestOrchestrator_RespectsConcurrencyBound(t *testing.T) {
	cfg := &ParallelConfig{MaxConcurrency: 2, ResultStrategy: StrategyWaitForAll}
	orch := NewOrchestrator(cfg, zap.NewNop(), nil)

	var running, peak int64
	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		now := atomic.AddInt64(&running, 1)
		for {
			seen := atomic.LoadInt64(&peak)
			if now <= seen || atomic.CompareAndSwapInt64(&peak, seen, now) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt64(&running, -1)
		return &ChildResult{Success: true}, nil
	}

	agg, err := orch.Run(context.Background(), namedItems("a", "b", "c", "d", "e", "f", "g", "h"), dispatch)
	require.NoError(t, err)
	assert.Equal(t, 8, agg.CompletedCount)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2), "no more than MaxConcurrency items may run at once")
}

func TestOrchestrator_WaitForAll_CollectsEveryOutcome(t *testing.T) {
	cfg := &ParallelConfig{ResultStrategy: StrategyWaitForAll}
	orch := NewOrchestrator(cfg, zap.NewNop(), nil)

	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		if item.Name == "b" {
			return &ChildResult{Success: false, ErrorMessage: "b refused"}, nil
		}
		return &ChildResult{Success: true, Result: item.Name, Usage: Usage{InputTokens: 10}}, nil
	}

	agg, err := orch.Run(context.Background(), namedItems("a", "b", "c"), dispatch)
	require.NoError(t, err)
	assert.True(t, agg.Success, "one success is enough for an aggregate success")
	assert.Equal(t, 3, agg.TotalCount)
	assert.Equal(t, 2, agg.CompletedCount)
	assert.Equal(t, 1, agg.FailedCount)
	assert.Len(t, agg.Outcomes, 3)
	assert.Equal(t, int64(20), agg.TotalUsage.InputTokens)
}

func TestOrchestrator_WaitForAll_AllFailed(t *testing.T) {
	cfg := &ParallelConfig{ResultStrategy: StrategyWaitForAll}
	orch := NewOrchestrator(cfg, zap.NewNop(), nil)

	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		return &ChildResult{Success: false, ErrorMessage: "no luck"}, nil
	}

	agg, err := orch.Run(context.Background(), namedItems("a", "b"), dispatch)
	require.NoError(t, err)
	assert.False(t, agg.Success)
	assert.Equal(t, "all parallel sessions failed", agg.ErrorMessage)
	assert.Equal(t, 2, agg.FailedCount)
}

func TestOrchestrator_StreamIndividual_NotifiesParentPerItem(t *testing.T) {
	parent := newFakeSession("sess_parent")
	cfg := &ParallelConfig{ResultStrategy: StrategyStreamIndividual}
	orch := NewOrchestrator(cfg, zap.NewNop(), parent)

	agg, err := orch.Run(context.Background(), namedItems("a", "b", "c"), successDispatch)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.CompletedCount)

	statuses := parent.sentStatuses()
	require.Len(t, statuses, 3, "every completed item must be announced before Run returns")
	for _, status := range statuses {
		assert.True(t, strings.HasPrefix(status, "Parallel subtask update: "), status)
		assert.Contains(t, status, "succeeded")
	}
}

func TestOrchestrator_FirstResultWins_FirstSuccessCancelsSiblings(t *testing.T) {
	cfg := &ParallelConfig{ResultStrategy: StrategyFirstResultWins, MaxConcurrency: 3}
	orch := NewOrchestrator(cfg, zap.NewNop(), nil)

	var cancelledSibling atomic.Bool
	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		switch item.Name {
		case "a":
			return nil, errors.New("a broke immediately")
		case "b":
			time.Sleep(50 * time.Millisecond)
			return &ChildResult{Success: true, Result: "b wins"}, nil
		default:
			<-ctx.Done()
			cancelledSibling.Store(true)
			return nil, ctx.Err()
		}
	}

	agg, err := orch.Run(context.Background(), namedItems("a", "b", "c"), dispatch)
	require.NoError(t, err)
	assert.True(t, agg.Success)
	assert.Equal(t, 3, agg.TotalCount)
	assert.Equal(t, 1, agg.CompletedCount)
	assert.Equal(t, 1, agg.FailedCount, "only failures observed before the win are counted")
	require.Len(t, agg.Outcomes, 1, "the winner is the sole reported outcome")
	assert.Equal(t, "b wins", agg.Outcomes[0].Result.Result)

	assert.Eventually(t, cancelledSibling.Load, time.Second, 5*time.Millisecond,
		"the still-running sibling must be cancelled")
}

func TestOrchestrator_FirstResultWins_AllFailed(t *testing.T) {
	cfg := &ParallelConfig{ResultStrategy: StrategyFirstResultWins}
	orch := NewOrchestrator(cfg, zap.NewNop(), nil)

	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		return &ChildResult{Success: false, ErrorMessage: item.Name + " failed"}, nil
	}

	agg, err := orch.Run(context.Background(), namedItems("a", "b", "c"), dispatch)
	require.NoError(t, err)
	assert.False(t, agg.Success)
	assert.Equal(t, "all parallel sessions failed", agg.ErrorMessage)
	assert.Equal(t, 3, agg.FailedCount)
	assert.Len(t, agg.Outcomes, 3)
}

func TestOrchestrator_PerItemTimeoutIsIsolated(t *testing.T) {
	cfg := &ParallelConfig{ResultStrategy: StrategyWaitForAll, SessionTimeout: 30 * time.Millisecond}
	orch := NewOrchestrator(cfg, zap.NewNop(), nil)

	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		if item.Name == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &ChildResult{Success: true}, nil
	}

	agg, err := orch.Run(context.Background(), namedItems("slow", "fast"), dispatch)
	require.NoError(t, err)
	assert.True(t, agg.Success)
	assert.Equal(t, 1, agg.CompletedCount)
	assert.Equal(t, 1, agg.FailedCount)
	for _, out := range agg.Outcomes {
		if out.Name == "slow" {
			assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
		}
	}
}

func TestOrchestrator_UnsupportedStrategy(t *testing.T) {
	cfg := &ParallelConfig{ResultStrategy: ResultStrategy(42)}
	orch := NewOrchestrator(cfg, zap.NewNop(), nil)

	_, err := orch.Run(context.Background(), namedItems("a"), successDispatch)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedStrategy)
}

func TestOrchestrator_PanicInOneItemDoesNotAbortSiblings(t *testing.T) {
	cfg := &ParallelConfig{ResultStrategy: StrategyWaitForAll}
	orch := NewOrchestrator(cfg, zap.NewNop(), nil)

	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		if item.Name == "bad" {
			panic("dispatch exploded")
		}
		return &ChildResult{Success: true}, nil
	}

	agg, err := orch.Run(context.Background(), namedItems("bad", "good"), dispatch)
	require.NoError(t, err)
	assert.True(t, agg.Success)
	assert.Equal(t, 1, agg.FailedCount)
	for _, out := range agg.Outcomes {
		if out.Name == "bad" {
			require.Error(t, out.Err)
			assert.Contains(t, out.Err.Error(), "dispatch exploded")
		}
	}
}

func TestOrchestrator_CallerCancellationSurfacesAsError(t *testing.T) {
	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	for _, strategy := range []ResultStrategy{StrategyWaitForAll, StrategyStreamIndividual, StrategyFirstResultWins} {
		t.Run(strategy.String(), func(t *testing.T) {
			cfg := &ParallelConfig{ResultStrategy: strategy, MaxConcurrency: 2}
			orch := NewOrchestrator(cfg, zap.NewNop(), nil)

			ctx, cancel := context.WithCancel(context.Background())
			go func() {
				time.Sleep(20 * time.Millisecond)
				cancel()
			}()

			agg, err := orch.Run(ctx, namedItems("a", "b"), dispatch)
			require.Error(t, err)
			assert.ErrorIs(t, err, context.Canceled,
				"cancellation must stay distinguishable from a failed run")
			assert.Nil(t, agg)
		})
	}
}

func TestOrchestrator_LogsCarryRunAndItemIDs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := &ParallelConfig{ResultStrategy: StrategyWaitForAll}
	orch := NewOrchestrator(cfg, zap.New(core), nil)

	_, err := orch.Run(context.Background(), namedItems("a"), successDispatch)
	require.NoError(t, err)

	var sawRun, sawItem bool
	for _, entry := range logs.All() {
		fields := entry.ContextMap()
		if id, ok := fields["run_id"].(string); ok {
			assert.True(t, strings.HasPrefix(id, PrefixRun+"_"), id)
			sawRun = true
		}
		if id, ok := fields["item_id"].(string); ok {
			assert.True(t, strings.HasPrefix(id, PrefixItem+"_"), id)
			sawItem = true
		}
	}
	assert.True(t, sawRun, "run logs must carry a run id")
	assert.True(t, sawItem, "item logs must carry an item id")
}

func TestOrchestrator_DanglingExhaustionIsRunFatal(t *testing.T) {
	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		if item.Name == "mute" {
			return nil, fmt.Errorf("child gave up: %w", ErrDanglingExhausted)
		}
		return &ChildResult{Success: true}, nil
	}

	for _, strategy := range []ResultStrategy{StrategyWaitForAll, StrategyFirstResultWins} {
		t.Run(strategy.String(), func(t *testing.T) {
			cfg := &ParallelConfig{ResultStrategy: strategy, MaxConcurrency: 1}
			orch := NewOrchestrator(cfg, zap.NewNop(), nil)

			agg, err := orch.Run(context.Background(), namedItems("mute"), dispatch)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDanglingExhausted)
			assert.Nil(t, agg)
		})
	}
}
