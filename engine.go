package delegate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ajharte/delegate-go/internal/validate"
)

// Engine is the entry point for subtask delegation. The same Engine can be
// shared across goroutines; all per-invocation state lives in the call.
type Engine struct {
	host      Host
	templates TemplateEngine
	log       *zap.Logger
}

// NewEngine creates an Engine bound to the given host.
func NewEngine(host Host, opts ...EngineOption) *Engine {
	o := resolveEngineOptions(opts)
	return &Engine{
		host:      host,
		templates: o.templates,
		log:       o.log,
	}
}

// Delegate runs one delegation call: validates configuration and inputs,
// enforces the recursion limit, derives work items, and drives child
// sessions to completion.
//
// Expected domain failures (a child reporting an error, all parallel items
// failing) come back as a descriptive status string with a nil error.
// Configuration errors, recursion-limit violations, cancellation, and
// retry-exhausted waits come back as errors.
func (e *Engine) Delegate(ctx context.Context, args map[string]any, cfg *DelegationConfig, contextSession SessionHandle) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("%w: nil config", ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	cfg = cfg.normalized()

	level := CurrentRecursionLevel(contextSession)
	if err := checkRecursionLimit(level, cfg.MaxRecursionLevel); err != nil {
		return "", err
	}

	if missing, typeErrors := validate.Check(toValidateSpecs(cfg.InputParameters), args); len(missing) > 0 || len(typeErrors) > 0 {
		return "", fmt.Errorf("delegate: invalid request parameters: %s", validate.Describe(missing, typeErrors))
	}

	e.log.Info("delegating subtask",
		zap.String("function", cfg.FunctionName),
		zap.Int("recursion_level", level))

	if cfg.Parallel == nil || cfg.Parallel.ExecutionType == ExecutionNone {
		return e.delegateSingle(ctx, args, cfg, contextSession)
	}
	return e.delegateParallel(ctx, args, cfg, contextSession)
}

// delegateSingle runs exactly one child session with the full request.
func (e *Engine) delegateSingle(ctx context.Context, args map[string]any, cfg *DelegationConfig, parent SessionHandle) (string, error) {
	timeout := DefaultSessionTimeout
	if cfg.Parallel != nil {
		timeout = cfg.Parallel.SessionTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := e.runChild(runCtx, e.baseBindings(args, cfg), cfg, parent)
	if err != nil {
		return "", err
	}
	if result.Success {
		return "Succeeded", nil
	}
	return "Failed: " + result.ErrorMessage, nil
}

// delegateParallel fans the request out into work items and aggregates their
// outcomes.
func (e *Engine) delegateParallel(ctx context.Context, args map[string]any, cfg *DelegationConfig, parent SessionHandle) (string, error) {
	items, err := ExtractWorkItems(args, cfg.Parallel)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", ErrNoWorkItems
	}

	orch := NewOrchestrator(cfg.Parallel, e.log, parent)
	dispatch := func(ctx context.Context, item WorkItem) (*ChildResult, error) {
		return e.runChild(ctx, e.itemBindings(args, cfg, item), cfg, parent)
	}
	agg, err := orch.Run(ctx, items, dispatch)
	if err != nil {
		return "", err
	}
	return agg.Summary(), nil
}

// runChild creates one child session and drives it through a Coordinator.
func (e *Engine) runChild(ctx context.Context, bindings map[string]any, cfg *DelegationConfig, parent SessionHandle) (*ChildResult, error) {
	child, err := e.host.CreateChildSession(ctx, parent, cfg.PersonName)
	if err != nil {
		return nil, fmt.Errorf("delegate: creating child session: %w", err)
	}
	coord := NewCoordinator(cfg, child, e.templates, e.log, bindings)
	return coord.Run(ctx)
}

// baseBindings exposes every request argument to template rendering, plus
// the delegation's own identifiers.
func (e *Engine) baseBindings(args map[string]any, cfg *DelegationConfig) map[string]any {
	bindings := make(map[string]any, len(args)+3)
	for k, v := range args {
		bindings[k] = v
	}
	bindings["FunctionName"] = cfg.FunctionName
	bindings["ReturnToolName"] = cfg.ReturnToolName
	bindings["Timestamp"] = time.Now().UTC().Format(time.RFC3339)
	return bindings
}

// itemBindings narrows the base bindings to one work item: the item's own
// parameter shadows the full request value, so list elements render
// individually.
func (e *Engine) itemBindings(args map[string]any, cfg *DelegationConfig, item WorkItem) map[string]any {
	bindings := e.baseBindings(args, cfg)
	bindings[item.Name] = item.Value
	bindings["ItemName"] = item.Name
	bindings["ItemValue"] = item.Value
	return bindings
}
