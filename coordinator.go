package delegate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ajharte/delegate-go/internal/validate"
)

// errorMessageParam is the error-reporting tool argument carrying the child's
// error text.
const errorMessageParam = "error_message"

// coordinatorState tracks the child session's position in its lifecycle.
// Used for logging and tests; transitions follow the dispatch loop in Run.
type coordinatorState int

const (
	stateDispatched coordinatorState = iota
	stateAwaitingTool
	stateSucceeded
	stateFailedDangling
	stateFailedReported
	statePaused
	stateCancelled
)

func (s coordinatorState) String() string {
	switch s {
	case stateDispatched:
		return "dispatched"
	case stateAwaitingTool:
		return "awaiting_tool"
	case stateSucceeded:
		return "succeeded"
	case stateFailedDangling:
		return "failed_dangling"
	case stateFailedReported:
		return "failed_reported"
	case statePaused:
		return "paused"
	case stateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Coordinator drives one child session from dispatch to a final ChildResult.
//
// It registers the return tool (and the error tool when configured) on the
// session, sends the initial templated message, and then waits on whichever
// of the racing events settles first: a gate settle, a pause signal, turn
// completion without a tool call, or cancellation. Each coordinator owns its
// gates exclusively.
type Coordinator struct {
	cfg       *DelegationConfig
	sess      SessionHandle
	templates TemplateEngine
	log       *zap.Logger
	bindings  map[string]any

	returnGate *CompletionGate
	errorGate  *CompletionGate
	pauseCh    chan struct{}

	returnFailures *validate.FailureCounter
	errorFailures  *validate.FailureCounter

	state coordinatorState
}

// NewCoordinator creates a coordinator for one child session. The bindings
// map feeds template rendering of the initial and urging messages.
func NewCoordinator(cfg *DelegationConfig, sess SessionHandle, templates TemplateEngine, log *zap.Logger, bindings map[string]any) *Coordinator {
	return &Coordinator{
		cfg:            cfg,
		sess:           sess,
		templates:      templates,
		log:            log.With(zap.String("child_session", sess.ID())),
		bindings:       bindings,
		returnGate:     NewCompletionGate(),
		errorGate:      NewCompletionGate(),
		pauseCh:        make(chan struct{}, 1),
		returnFailures: validate.NewFailureCounter(DefaultValidationFailureLimit),
		errorFailures:  validate.NewFailureCounter(DefaultValidationFailureLimit),
		state:          stateDispatched,
	}
}

// Run executes the child session to completion. It returns exactly one
// ChildResult, or an error for cancellation and fatal conditions (dangling
// exhaustion, validation exhaustion, transport failure). On any exit the
// child session's in-flight activity is cancelled.
func (c *Coordinator) Run(ctx context.Context) (*ChildResult, error) {
	defer func() {
		c.sess.Cancel()
		c.safeDispose()
	}()

	c.registerTools()
	c.sess.SetToolExecutionMode(ToolModeRequireAny)

	turnCh := make(chan error, 1)
	sendTurn := func(text string) {
		go func() {
			turnCh <- c.sess.SendMessage(ctx, KindMessage, text)
		}()
	}

	sendTurn(c.templates.Render(c.cfg.TaskMessage, c.bindings))
	c.transition(stateAwaitingTool)

	urgeText := c.templates.Render(c.cfg.UrgingMessage, c.bindings)
	urgesSent := 0
	paused := false

	for {
		select {
		case <-ctx.Done():
			c.transition(stateCancelled)
			return nil, ctx.Err()

		case <-c.returnGate.Done():
			return c.settle(c.returnGate, stateSucceeded)

		case <-c.errorGate.Done():
			return c.settle(c.errorGate, stateFailedReported)

		case <-c.pauseCh:
			paused = true
			c.transition(statePaused)

		case err := <-turnCh:
			if err != nil {
				if ctx.Err() != nil {
					c.transition(stateCancelled)
					return nil, ctx.Err()
				}
				return nil, fmt.Errorf("delegate: sending message to child session: %w", err)
			}
			// A gate may have settled during the turn; the next iteration
			// picks it up. Events are never dropped.
			if c.returnGate.Settled() || c.errorGate.Settled() {
				continue
			}
			// A pause issued during the turn must not read as dangling.
			select {
			case <-c.pauseCh:
				paused = true
				c.transition(statePaused)
			default:
			}
			if paused {
				continue
			}

			behavior := c.cfg.DanglingBehavior
			if behavior != DanglingUrge && behavior != DanglingReportError && behavior != DanglingPause {
				c.log.Warn("unknown dangling behavior, falling back to urge",
					zap.Int("behavior", int(behavior)))
				behavior = DanglingUrge
			}

			switch behavior {
			case DanglingUrge:
				if urgesSent >= DefaultUrgingAttempts {
					c.transition(stateFailedDangling)
					return nil, ErrDanglingExhausted
				}
				urgesSent++
				c.log.Info("urging dangling child session",
					zap.Int("attempt", urgesSent))
				c.sess.SetToolExecutionMode(ToolModeRequireAny)
				sendTurn(urgeText)

			case DanglingReportError:
				c.transition(stateFailedDangling)
				return c.withUsage(&ChildResult{
					Success:      false,
					ErrorMessage: c.cfg.ErrorMessage,
				}), nil

			case DanglingPause:
				// Wait indefinitely; external intervention must eventually
				// trigger a tool call.
			}
		}
	}
}

// settle reads a settled gate and finishes the run. A gate fault (validation
// exhaustion) propagates as a fatal error rather than a child result.
func (c *Coordinator) settle(gate *CompletionGate, terminal coordinatorState) (*ChildResult, error) {
	result, fault := gate.Outcome()
	if fault != nil {
		c.transition(stateFailedDangling)
		return nil, fault
	}
	c.transition(terminal)
	return c.withUsage(result), nil
}

func (c *Coordinator) transition(next coordinatorState) {
	c.log.Debug("coordinator state transition",
		zap.Stringer("from", c.state),
		zap.Stringer("to", next))
	c.state = next
}

// withUsage attaches the host's token/cost accounting when the session
// reports it.
func (c *Coordinator) withUsage(result *ChildResult) *ChildResult {
	if result == nil {
		return nil
	}
	if reporter, ok := c.sess.(UsageReporter); ok {
		result.Usage = reporter.Usage()
	}
	return result
}

func (c *Coordinator) registerTools() {
	tools := map[string]RegisteredTool{
		c.cfg.ReturnToolName: {
			Definition: ToolDefinition{
				Name:        c.cfg.ReturnToolName,
				Description: c.cfg.ReturnToolDescription,
				Parameters:  c.cfg.ReturnParameters,
			},
			Call: c.handleReturn,
		},
	}
	if er := c.cfg.ErrorReporting; er != nil {
		tools[er.ToolName] = RegisteredTool{
			Definition: ToolDefinition{
				Name:        er.ToolName,
				Description: er.ToolDescription,
				Parameters:  er.Parameters,
			},
			Call: c.handleErrorReport,
		}
	}
	c.sess.RegisterTools(tools)
}

// handleReturn is the success-reporting tool. Invalid arguments are rejected
// back to the model as retryable errors until the failure threshold faults
// the gate.
func (c *Coordinator) handleReturn(ctx context.Context, args map[string]any) (string, error) {
	if msg, ok := c.checkToolArgs(c.cfg.ReturnToolName, c.cfg.ReturnParameters, args, c.returnFailures, c.returnGate); !ok {
		return "", fmt.Errorf("invalid arguments: %s", msg)
	}

	payload, err := json.Marshal(filterArgs(args, c.cfg.ReturnParameters))
	if err != nil {
		return "", fmt.Errorf("serializing result: %w", err)
	}
	if c.returnGate.TrySet(ChildResult{Success: true, Result: string(payload)}) {
		return "Result recorded.", nil
	}
	// A second call races or repeats the first; acknowledge without overwrite.
	return "Result already recorded.", nil
}

// handleErrorReport is the optional error-reporting tool.
func (c *Coordinator) handleErrorReport(ctx context.Context, args map[string]any) (string, error) {
	er := c.cfg.ErrorReporting
	if msg, ok := c.checkToolArgs(er.ToolName, er.Parameters, args, c.errorFailures, c.errorGate); !ok {
		return "", fmt.Errorf("invalid arguments: %s", msg)
	}

	errText := stringify(args[errorMessageParam])

	switch er.Behavior {
	case ErrorReportPause:
		select {
		case c.pauseCh <- struct{}{}:
		default:
		}
		return "Error noted; the session is paused pending intervention.", nil
	case ErrorReportFail:
	default:
		c.log.Warn("unknown error-report behavior, treating as report",
			zap.Int("behavior", int(er.Behavior)))
	}

	c.errorGate.TrySet(ChildResult{
		Success:      false,
		ErrorMessage: c.renderParentError(errText),
	})
	return "Error reported to the delegating session.", nil
}

// checkToolArgs validates one tool invocation, tracking consecutive failures.
// Reaching the threshold faults the gate, ending the coordinator's wait.
func (c *Coordinator) checkToolArgs(toolName string, params []ParamSpec, args map[string]any, counter *validate.FailureCounter, gate *CompletionGate) (string, bool) {
	missing, typeErrors := validate.Check(toValidateSpecs(params), args)
	if len(missing) == 0 && len(typeErrors) == 0 {
		counter.Reset()
		return "", true
	}
	desc := validate.Describe(missing, typeErrors)
	c.log.Debug("rejecting tool call with invalid arguments",
		zap.String("tool", toolName),
		zap.String("reason", desc),
		zap.Int("consecutive_failures", counter.Count()+1))
	if counter.Fail() {
		gate.TrySetFault(fmt.Errorf("%w: tool %s: %s", ErrValidationExhausted, toolName, desc))
	}
	return desc, false
}

// renderParentError builds the parent-facing failure message from the custom
// template, falling back to the default when none is configured.
func (c *Coordinator) renderParentError(errText string) string {
	template := DefaultParentErrorTemplate
	toolName := ""
	if er := c.cfg.ErrorReporting; er != nil {
		toolName = er.ToolName
		if er.CustomParentMessageTemplate != "" {
			template = er.CustomParentMessageTemplate
		}
	}
	return c.templates.Render(template, map[string]any{
		"FunctionName":  c.cfg.FunctionName,
		"SessionId":     c.sess.ID(),
		"Timestamp":     time.Now().UTC().Format(time.RFC3339),
		"ErrorMessage":  errText,
		"ErrorToolName": toolName,
	})
}

// safeDispose releases the child session without letting a teardown panic
// reach the caller; disposal of an already-torn-down session is a no-op.
func (c *Coordinator) safeDispose() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn("child session disposal panicked", zap.Any("panic", r))
		}
	}()
	c.sess.Dispose()
}

func toValidateSpecs(params []ParamSpec) []validate.Spec {
	specs := make([]validate.Spec, 0, len(params))
	for _, p := range params {
		specs = append(specs, validate.Spec{
			Name:     p.Name,
			Type:     string(p.Type),
			Required: p.Required,
			Nested:   toValidateSpecs(p.Nested),
		})
	}
	return specs
}

// filterArgs keeps only declared parameters so undeclared extras the model
// invents never reach the serialized result.
func filterArgs(args map[string]any, params []ParamSpec) map[string]any {
	filtered := make(map[string]any, len(params))
	for _, p := range params {
		if value, ok := args[p.Name]; ok {
			filtered[p.Name] = value
		}
	}
	return filtered
}
