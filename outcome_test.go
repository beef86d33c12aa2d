package delegate

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUsage_Add(t *testing.T) {
	a := Usage{InputTokens: 100, OutputTokens: 20, Cost: decimal.NewFromFloat(0.01)}
	b := Usage{InputTokens: 50, OutputTokens: 5, Cost: decimal.NewFromFloat(0.002)}

	sum := a.Add(b)
	assert.Equal(t, int64(150), sum.InputTokens)
	assert.Equal(t, int64(25), sum.OutputTokens)
	assert.True(t, sum.Cost.Equal(decimal.NewFromFloat(0.012)))
}

func TestWorkItemOutcome_IsSuccess(t *testing.T) {
	assert.False(t, WorkItemOutcome{}.IsSuccess())
	assert.False(t, WorkItemOutcome{Result: &ChildResult{Success: false}}.IsSuccess())
	assert.True(t, WorkItemOutcome{Result: &ChildResult{Success: true}}.IsSuccess())
}

func TestAggregateOutcome_Summary(t *testing.T) {
	start := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	agg := &AggregateOutcome{
		Success:        true,
		Strategy:       StrategyWaitForAll,
		TotalCount:     3,
		CompletedCount: 2,
		FailedCount:    1,
		StartTime:      start,
		EndTime:        start.Add(1500 * time.Millisecond),
		Outcomes: []WorkItemOutcome{
			{
				Name: "items", Value: "x",
				Result:    &ChildResult{Success: true, Result: "found it"},
				StartTime: start, EndTime: start.Add(time.Second),
			},
			{
				Name: "items", Value: "y",
				Result:    &ChildResult{Success: false, ErrorMessage: "nothing there"},
				StartTime: start, EndTime: start.Add(time.Second),
			},
			{
				Name: "items", Value: "z",
				Err:       errors.New("session crashed"),
				StartTime: start, EndTime: start.Add(time.Second),
			},
		},
	}

	summary := agg.Summary()
	assert.Contains(t, summary, "wait_for_all")
	assert.Contains(t, summary, "2/3 succeeded, 1 failed")
	assert.Contains(t, summary, "succeeded: found it")
	assert.Contains(t, summary, "failed: nothing there")
	assert.Contains(t, summary, "failed: session crashed")
}

func TestAggregateOutcome_Summary_AllFailedCarriesErrorMessage(t *testing.T) {
	agg := &AggregateOutcome{
		Success:      false,
		ErrorMessage: "all parallel sessions failed",
		Strategy:     StrategyFirstResultWins,
		TotalCount:   2,
		FailedCount:  2,
	}

	assert.Contains(t, agg.Summary(), "0/2 succeeded, 2 failed")
	assert.Contains(t, agg.Summary(), ": all parallel sessions failed")
}

func TestFormatOutcomeLine_NoResult(t *testing.T) {
	line := formatOutcomeLine(WorkItemOutcome{Name: "item", Value: "a"})
	assert.Contains(t, line, "failed: no result")
}
