package delegate

import (
	"context"
	"fmt"
	"reflect"

	"github.com/bmatcuk/doublestar/v4"
)

// builtinExcludedParams are request keys that never become work items: they
// carry host plumbing, not task data.
var builtinExcludedParams = map[string]bool{
	"session":            true,
	"parent_session":     true,
	"cancellation_token": true,
}

// ExtractWorkItems derives the independent work items for a parallel run.
//
// ExecutionNone yields an empty list: callers run exactly one session with
// the full request. ExecutionParameterBased may also yield an empty list
// when every parameter is filtered out; callers must treat that as a
// configuration error. The list- and external-list strategies fail here when
// their source is empty rather than returning zero items silently.
func ExtractWorkItems(args map[string]any, cfg *ParallelConfig) ([]WorkItem, error) {
	switch cfg.ExecutionType {
	case ExecutionNone:
		return nil, nil
	case ExecutionParameterBased:
		return extractParameterBased(args, cfg.ExcludedParameterNames), nil
	case ExecutionListBased:
		return extractListBased(args, cfg.ListParameterName)
	case ExecutionExternalList:
		return extractExternalList(cfg.ExternalList)
	}
	return nil, fmt.Errorf("%w: unknown execution type %d", ErrInvalidConfiguration, int(cfg.ExecutionType))
}

func extractParameterBased(args map[string]any, excluded []string) []WorkItem {
	var items []WorkItem
	for name, value := range args {
		if builtinExcludedParams[name] || matchesAny(name, excluded) {
			continue
		}
		// Nil values stay in: template rendering sees an empty value, not a
		// missing parameter.
		if value != nil && !isPlainData(value) {
			continue
		}
		items = append(items, WorkItem{Name: name, Value: value})
	}
	return items
}

// matchesAny matches a parameter name against exclusion patterns. Patterns
// use doublestar glob syntax; a malformed pattern falls back to a literal
// comparison.
func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			ok = pattern == name
		}
		if ok {
			return true
		}
	}
	return false
}

// isPlainData rejects values that are host plumbing rather than task data:
// session handles, contexts, functions, and channels.
func isPlainData(value any) bool {
	switch value.(type) {
	case SessionHandle, context.Context:
		return false
	}
	switch reflect.TypeOf(value).Kind() {
	case reflect.Func, reflect.Chan:
		return false
	}
	return true
}

func extractListBased(args map[string]any, listParam string) ([]WorkItem, error) {
	if listParam == "" {
		return nil, fmt.Errorf("%w: listParameterName is required for list-based execution", ErrInvalidConfiguration)
	}
	value, ok := args[listParam]
	if !ok || value == nil {
		return nil, fmt.Errorf("%w: list parameter %q is absent or nil", ErrInvalidConfiguration, listParam)
	}
	// Strings are iterable but never a work list.
	if _, isString := value.(string); isString {
		return nil, fmt.Errorf("%w: list parameter %q is a string, not a list", ErrInvalidConfiguration, listParam)
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: list parameter %q is not enumerable (%T)", ErrInvalidConfiguration, listParam, value)
	}
	if rv.Len() == 0 {
		return nil, fmt.Errorf("%w: list parameter %q is empty", ErrInvalidConfiguration, listParam)
	}
	items := make([]WorkItem, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items = append(items, WorkItem{Name: listParam, Value: rv.Index(i).Interface()})
	}
	return items, nil
}

func extractExternalList(list []string) ([]WorkItem, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: externalList is empty", ErrInvalidConfiguration)
	}
	items := make([]WorkItem, 0, len(list))
	for _, value := range list {
		items = append(items, WorkItem{Name: "item", Value: value})
	}
	return items, nil
}
