package delegate

import (
	"fmt"
	"runtime"
	"time"
)

// ExecutionType selects how parallel work items are derived from a request.
type ExecutionType int

const (
	// ExecutionNone disables parallelism: exactly one child session runs with
	// the full request.
	ExecutionNone ExecutionType = iota
	// ExecutionParameterBased derives one work item per plain-data request
	// parameter.
	ExecutionParameterBased
	// ExecutionListBased derives one work item per element of a named list
	// parameter.
	ExecutionListBased
	// ExecutionExternalList derives work items from a list supplied in the
	// configuration itself.
	ExecutionExternalList
)

func (t ExecutionType) String() string {
	switch t {
	case ExecutionNone:
		return "none"
	case ExecutionParameterBased:
		return "parameter_based"
	case ExecutionListBased:
		return "list_based"
	case ExecutionExternalList:
		return "external_list"
	}
	return "unknown"
}

// ResultStrategy selects how parallel outcomes are awaited and combined.
type ResultStrategy int

const (
	// StrategyWaitForAll awaits every item and reports all outcomes.
	StrategyWaitForAll ResultStrategy = iota
	// StrategyStreamIndividual awaits every item and additionally notifies the
	// orchestrating session as each item completes.
	StrategyStreamIndividual
	// StrategyFirstResultWins returns the first successful item and cancels
	// the rest.
	StrategyFirstResultWins
)

func (s ResultStrategy) String() string {
	switch s {
	case StrategyWaitForAll:
		return "wait_for_all"
	case StrategyStreamIndividual:
		return "stream_individual"
	case StrategyFirstResultWins:
		return "first_result_wins"
	}
	return "unknown"
}

// DanglingBehavior selects how a child that completes a model turn without
// calling any tool is handled.
type DanglingBehavior int

const (
	// DanglingUrge sends up to three reminder messages, then fails the run.
	DanglingUrge DanglingBehavior = iota
	// DanglingReportError immediately settles the child as failed.
	DanglingReportError
	// DanglingPause keeps waiting indefinitely with no reminders.
	DanglingPause
)

func (b DanglingBehavior) String() string {
	switch b {
	case DanglingUrge:
		return "urge"
	case DanglingReportError:
		return "report_error"
	case DanglingPause:
		return "pause"
	}
	return "unknown"
}

// ErrorReportBehavior selects how an invocation of the error-reporting tool
// is handled.
type ErrorReportBehavior int

const (
	// ErrorReportFail settles the child as failed with a parent-facing message.
	ErrorReportFail ErrorReportBehavior = iota
	// ErrorReportPause leaves the child alive and keeps waiting for the
	// return tool.
	ErrorReportPause
)

func (b ErrorReportBehavior) String() string {
	switch b {
	case ErrorReportFail:
		return "report_error"
	case ErrorReportPause:
		return "pause"
	}
	return "unknown"
}

// ErrorReportingConfig configures the optional error-reporting tool exposed
// to child sessions.
type ErrorReportingConfig struct {
	ToolName                    string
	ToolDescription             string
	Parameters                  []ParamSpec
	Behavior                    ErrorReportBehavior
	CustomParentMessageTemplate string
}

// ParallelConfig configures parallel fan-out for one delegation call.
type ParallelConfig struct {
	ExecutionType  ExecutionType
	MaxConcurrency int
	ResultStrategy ResultStrategy

	// ListParameterName names the request parameter holding the work list.
	// Required for ExecutionListBased.
	ListParameterName string

	// ExternalList supplies the work items directly. Required non-empty for
	// ExecutionExternalList.
	ExternalList []string

	// ExcludedParameterNames are glob patterns (doublestar syntax) of request
	// parameters to skip under ExecutionParameterBased.
	ExcludedParameterNames []string

	// SessionTimeout bounds each child session run. Zero means
	// DefaultSessionTimeout.
	SessionTimeout time.Duration
}

// normalized returns a copy with defaults applied.
func (c *ParallelConfig) normalized() *ParallelConfig {
	out := *c
	if out.MaxConcurrency <= 0 {
		out.MaxConcurrency = runtime.NumCPU()
	}
	if out.SessionTimeout <= 0 {
		out.SessionTimeout = DefaultSessionTimeout
	}
	return &out
}

// DelegationConfig is the immutable per-invocation configuration of one
// delegation call.
type DelegationConfig struct {
	FunctionName        string
	FunctionDescription string

	// MaxRecursionLevel bounds delegation depth along the ancestor-session
	// chain. Must be >= 0.
	MaxRecursionLevel int

	// PersonName selects the assistant persona child sessions are created as.
	PersonName string

	// InputParameters is the schema the request argument map is validated
	// against before dispatch.
	InputParameters []ParamSpec

	// TaskMessage is the template of the initial message sent to each child.
	TaskMessage string

	ReturnToolName        string
	ReturnToolDescription string
	ReturnParameters      []ParamSpec

	// UrgingMessage is the template of the reminder sent to a dangling child
	// under DanglingUrge.
	UrgingMessage string

	DanglingBehavior DanglingBehavior

	// ErrorMessage is the failure text used by DanglingReportError.
	ErrorMessage string

	ErrorReporting *ErrorReportingConfig
	Parallel       *ParallelConfig
}

// Validate checks the configuration for errors that must surface before any
// child session is created. All failures wrap ErrInvalidConfiguration.
func (c *DelegationConfig) Validate() error {
	if c.MaxRecursionLevel < 0 {
		return fmt.Errorf("%w: maxRecursionLevel must be >= 0, got %d", ErrInvalidConfiguration, c.MaxRecursionLevel)
	}
	if c.ErrorReporting != nil {
		if c.ErrorReporting.ToolName == "" {
			return fmt.Errorf("%w: errorReporting.toolName is required", ErrInvalidConfiguration)
		}
		returnName := c.ReturnToolName
		if returnName == "" {
			returnName = DefaultReturnToolName
		}
		if c.ErrorReporting.ToolName == returnName {
			return fmt.Errorf("%w: error tool name %q conflicts with return tool name", ErrInvalidConfiguration, returnName)
		}
	}
	if c.Parallel != nil {
		switch c.Parallel.ExecutionType {
		case ExecutionNone, ExecutionParameterBased:
		case ExecutionListBased:
			if c.Parallel.ListParameterName == "" {
				return fmt.Errorf("%w: listParameterName is required for list-based execution", ErrInvalidConfiguration)
			}
		case ExecutionExternalList:
			if len(c.Parallel.ExternalList) == 0 {
				return fmt.Errorf("%w: externalList must be non-empty for external-list execution", ErrInvalidConfiguration)
			}
		default:
			return fmt.Errorf("%w: unknown execution type %d", ErrInvalidConfiguration, int(c.Parallel.ExecutionType))
		}
	}
	return nil
}

// normalized returns a copy with defaults applied. The caller's config is
// never mutated.
func (c *DelegationConfig) normalized() *DelegationConfig {
	out := *c
	if out.ReturnToolName == "" {
		out.ReturnToolName = DefaultReturnToolName
	}
	if out.TaskMessage == "" {
		out.TaskMessage = DefaultTaskMessage
	}
	if out.UrgingMessage == "" {
		out.UrgingMessage = DefaultUrgingMessage
	}
	if out.ErrorMessage == "" {
		out.ErrorMessage = DefaultErrorMessage
	}
	if out.Parallel != nil {
		out.Parallel = out.Parallel.normalized()
	}
	return &out
}
