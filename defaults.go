package delegate

import "time"

// Defaults applied by DelegationConfig.normalized and ParallelConfig.normalized.
const (
	// DefaultSessionTimeout bounds each child session run.
	DefaultSessionTimeout = 30 * time.Minute

	// DefaultUrgingAttempts is the number of reminder messages sent to a
	// dangling child before the run fails.
	DefaultUrgingAttempts = 3

	// DefaultValidationFailureLimit is the number of consecutive tool-argument
	// validation failures tolerated before the wait is aborted.
	DefaultValidationFailureLimit = 5

	// DefaultReturnToolName is used when the config leaves the return tool unnamed.
	DefaultReturnToolName = "report_result"

	// DefaultUrgingMessage is sent to a child that finished a turn without
	// calling any tool.
	DefaultUrgingMessage = "You have not reported a result yet. Call the {ReturnToolName} tool to complete the subtask."

	// DefaultErrorMessage is the failure text used by the ReportError dangling
	// behavior when the config leaves ErrorMessage blank.
	DefaultErrorMessage = "The subtask session ended without reporting a result."

	// DefaultTaskMessage is the initial child message template used when the
	// config leaves TaskMessage blank.
	DefaultTaskMessage = "Complete the assigned subtask using the provided parameters, then report the outcome by calling the {ReturnToolName} tool."

	// DefaultParentErrorTemplate formats the parent-facing message when the
	// error-reporting tool is invoked and no custom template is configured.
	DefaultParentErrorTemplate = "Subtask '{FunctionName}' (session {SessionId}) reported an error via {ErrorToolName} at {Timestamp}: {ErrorMessage}"
)
