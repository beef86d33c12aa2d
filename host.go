package delegate

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
)

// MessageKind classifies a message sent to a session.
type MessageKind int

const (
	// KindInfoOnly is recorded in the session without triggering a model turn.
	KindInfoOnly MessageKind = iota
	// KindStatusUpdate is a progress notice from the orchestrator.
	KindStatusUpdate
	// KindMessage is a regular user-role message that drives a model turn.
	KindMessage
)

// String returns the kind's wire name.
func (k MessageKind) String() string {
	switch k {
	case KindInfoOnly:
		return "info_only"
	case KindStatusUpdate:
		return "status_update"
	case KindMessage:
		return "message"
	}
	return "unknown"
}

// ToolExecutionMode controls whether the model is required to call a tool.
type ToolExecutionMode int

const (
	// ToolModeAuto lets the model decide whether to call a tool.
	ToolModeAuto ToolExecutionMode = iota
	// ToolModeRequireAny forces the model to call one of the registered tools.
	ToolModeRequireAny
)

// ToolFunc is a dynamically callable tool function. The host's LLM-calling
// layer marshals model-issued tool calls into the argument map and relays the
// returned string back to the model.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// ToolDefinition is the schema half of a dynamically registered tool.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ParamSpec
}

// SchemaParam returns the definition's input schema in the shape the host's
// LLM layer exposes to the model.
func (d ToolDefinition) SchemaParam() anthropic.ToolInputSchemaParam {
	return SchemaParam(d.Parameters)
}

// RegisteredTool pairs a tool definition with its implementation.
type RegisteredTool struct {
	Definition ToolDefinition
	Call       ToolFunc
}

// SessionHandle is a live agent execution context owned by the host.
//
// SendMessage blocks until the model turn triggered by the message completes
// (including any tool calls the model makes during the turn). Cancel and
// Dispose are idempotent.
type SessionHandle interface {
	ID() string

	// Parent returns the session this one was spawned from, or nil for a root
	// session.
	Parent() SessionHandle

	SendMessage(ctx context.Context, kind MessageKind, text string) error
	RegisterTools(tools map[string]RegisteredTool)
	SetToolExecutionMode(mode ToolExecutionMode)

	// Cancel aborts the session's in-flight activity.
	Cancel()

	// Dispose releases the session's resources.
	Dispose()
}

// UsageReporter is an optional SessionHandle extension. Hosts that account
// tokens and cost expose the session's totals through it; the coordinator
// attaches them to the child result when present.
type UsageReporter interface {
	Usage() Usage
}

// Assistant describes a persona a child session can be created as.
type Assistant struct {
	Name        string
	Description string
}

// Host is the hosting application boundary for session management.
type Host interface {
	CreateChildSession(ctx context.Context, parent SessionHandle, personName string) (SessionHandle, error)
	ListAssistants(name string) []Assistant
}
