package delegate

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// fileConfig is the JSON file shape of a delegation configuration. Enums are
// spelled as strings and durations as milliseconds; LoadConfig converts to
// the in-memory DelegationConfig.
type fileConfig struct {
	FunctionName        string      `json:"functionName,omitempty"`
	FunctionDescription string      `json:"functionDescription,omitempty"`
	MaxRecursionLevel   *int        `json:"maxRecursionLevel,omitempty"`
	PersonName          string      `json:"personName,omitempty"`
	InputParameters     []ParamSpec `json:"inputParameters,omitempty"`
	TaskMessage         string      `json:"taskMessage,omitempty"`

	ReturnToolName        string      `json:"returnToolName,omitempty"`
	ReturnToolDescription string      `json:"returnToolDescription,omitempty"`
	ReturnParameters      []ParamSpec `json:"returnParameters,omitempty"`

	UrgingMessage    string `json:"urgingMessage,omitempty"`
	DanglingBehavior string `json:"danglingBehavior,omitempty"`
	ErrorMessage     string `json:"errorMessage,omitempty"`

	ErrorReporting *fileErrorReporting `json:"errorReporting,omitempty"`
	Parallel       *fileParallel       `json:"parallel,omitempty"`
}

type fileErrorReporting struct {
	ToolName                    string      `json:"toolName"`
	ToolDescription             string      `json:"toolDescription,omitempty"`
	Parameters                  []ParamSpec `json:"parameters,omitempty"`
	Behavior                    string      `json:"behavior,omitempty"`
	CustomParentMessageTemplate string      `json:"customParentMessageTemplate,omitempty"`
}

type fileParallel struct {
	ExecutionType          string   `json:"executionType,omitempty"`
	MaxConcurrency         int      `json:"maxConcurrency,omitempty"`
	ResultStrategy         string   `json:"resultStrategy,omitempty"`
	ListParameterName      string   `json:"listParameterName,omitempty"`
	ExternalList           []string `json:"externalList,omitempty"`
	ExcludedParameterNames []string `json:"excludedParameterNames,omitempty"`
	SessionTimeoutMs       int64    `json:"sessionTimeoutMs,omitempty"`
}

// LoadConfig merges delegation configuration from multiple JSON file paths.
// Later paths override earlier ones; missing files are silently skipped.
// Unknown enum spellings are a configuration error.
func LoadConfig(paths ...string) (*DelegationConfig, error) {
	merged := &fileConfig{}
	loaded := false
	for _, path := range paths {
		fc, err := loadConfigFile(path)
		if err != nil {
			continue
		}
		mergeFileConfig(merged, fc)
		loaded = true
	}
	if !loaded {
		return nil, fmt.Errorf("%w: no config file could be read", ErrInvalidConfiguration)
	}
	return merged.toConfig()
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

func mergeFileConfig(dst, src *fileConfig) {
	if src.FunctionName != "" {
		dst.FunctionName = src.FunctionName
	}
	if src.FunctionDescription != "" {
		dst.FunctionDescription = src.FunctionDescription
	}
	if src.MaxRecursionLevel != nil {
		dst.MaxRecursionLevel = src.MaxRecursionLevel
	}
	if src.PersonName != "" {
		dst.PersonName = src.PersonName
	}
	if len(src.InputParameters) > 0 {
		dst.InputParameters = src.InputParameters
	}
	if src.TaskMessage != "" {
		dst.TaskMessage = src.TaskMessage
	}
	if src.ReturnToolName != "" {
		dst.ReturnToolName = src.ReturnToolName
	}
	if src.ReturnToolDescription != "" {
		dst.ReturnToolDescription = src.ReturnToolDescription
	}
	if len(src.ReturnParameters) > 0 {
		dst.ReturnParameters = src.ReturnParameters
	}
	if src.UrgingMessage != "" {
		dst.UrgingMessage = src.UrgingMessage
	}
	if src.DanglingBehavior != "" {
		dst.DanglingBehavior = src.DanglingBehavior
	}
	if src.ErrorMessage != "" {
		dst.ErrorMessage = src.ErrorMessage
	}
	if src.ErrorReporting != nil {
		dst.ErrorReporting = src.ErrorReporting
	}
	if src.Parallel != nil {
		dst.Parallel = src.Parallel
	}
}

func (fc *fileConfig) toConfig() (*DelegationConfig, error) {
	cfg := &DelegationConfig{
		FunctionName:          fc.FunctionName,
		FunctionDescription:   fc.FunctionDescription,
		PersonName:            fc.PersonName,
		InputParameters:       fc.InputParameters,
		TaskMessage:           fc.TaskMessage,
		ReturnToolName:        fc.ReturnToolName,
		ReturnToolDescription: fc.ReturnToolDescription,
		ReturnParameters:      fc.ReturnParameters,
		UrgingMessage:         fc.UrgingMessage,
		ErrorMessage:          fc.ErrorMessage,
	}
	if fc.MaxRecursionLevel != nil {
		cfg.MaxRecursionLevel = *fc.MaxRecursionLevel
	}

	var err error
	if cfg.DanglingBehavior, err = parseDanglingBehavior(fc.DanglingBehavior); err != nil {
		return nil, err
	}
	if fc.ErrorReporting != nil {
		behavior, err := parseErrorReportBehavior(fc.ErrorReporting.Behavior)
		if err != nil {
			return nil, err
		}
		cfg.ErrorReporting = &ErrorReportingConfig{
			ToolName:                    fc.ErrorReporting.ToolName,
			ToolDescription:             fc.ErrorReporting.ToolDescription,
			Parameters:                  fc.ErrorReporting.Parameters,
			Behavior:                    behavior,
			CustomParentMessageTemplate: fc.ErrorReporting.CustomParentMessageTemplate,
		}
	}
	if fc.Parallel != nil {
		executionType, err := parseExecutionType(fc.Parallel.ExecutionType)
		if err != nil {
			return nil, err
		}
		strategy, err := parseResultStrategy(fc.Parallel.ResultStrategy)
		if err != nil {
			return nil, err
		}
		cfg.Parallel = &ParallelConfig{
			ExecutionType:          executionType,
			MaxConcurrency:         fc.Parallel.MaxConcurrency,
			ResultStrategy:         strategy,
			ListParameterName:      fc.Parallel.ListParameterName,
			ExternalList:           fc.Parallel.ExternalList,
			ExcludedParameterNames: fc.Parallel.ExcludedParameterNames,
			SessionTimeout:         time.Duration(fc.Parallel.SessionTimeoutMs) * time.Millisecond,
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDanglingBehavior(s string) (DanglingBehavior, error) {
	switch s {
	case "", "urge":
		return DanglingUrge, nil
	case "report_error":
		return DanglingReportError, nil
	case "pause":
		return DanglingPause, nil
	}
	return 0, fmt.Errorf("%w: unknown dangling behavior %q", ErrInvalidConfiguration, s)
}

func parseErrorReportBehavior(s string) (ErrorReportBehavior, error) {
	switch s {
	case "", "report_error":
		return ErrorReportFail, nil
	case "pause":
		return ErrorReportPause, nil
	}
	return 0, fmt.Errorf("%w: unknown error-report behavior %q", ErrInvalidConfiguration, s)
}

func parseExecutionType(s string) (ExecutionType, error) {
	switch s {
	case "", "none":
		return ExecutionNone, nil
	case "parameter_based":
		return ExecutionParameterBased, nil
	case "list_based":
		return ExecutionListBased, nil
	case "external_list":
		return ExecutionExternalList, nil
	}
	return 0, fmt.Errorf("%w: unknown execution type %q", ErrInvalidConfiguration, s)
}

func parseResultStrategy(s string) (ResultStrategy, error) {
	switch s {
	case "", "wait_for_all":
		return StrategyWaitForAll, nil
	case "stream_individual":
		return StrategyStreamIndividual, nil
	case "first_result_wins":
		return StrategyFirstResultWins, nil
	}
	return 0, fmt.Errorf("%w: unknown result strategy %q", ErrInvalidConfiguration, s)
}
