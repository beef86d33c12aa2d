// Package validate checks tool and request argument maps against declared
// parameter schemas, with lossless-conversion type rules.
package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Spec is one declared parameter. Mirrors the public ParamSpec shape without
// importing the root package.
type Spec struct {
	Name     string
	Type     string
	Required bool
	Nested   []Spec
}

// Check validates args against specs. A parameter is missing when required
// and absent from the map; an explicit nil value counts as present. A type
// error is reported when a present, non-nil value is neither assignable to
// nor losslessly convertible to the declared type.
func Check(specs []Spec, args map[string]any) (missing []string, typeErrors []string) {
	for _, spec := range specs {
		value, present := args[spec.Name]
		if !present {
			if spec.Required {
				missing = append(missing, spec.Name)
			}
			continue
		}
		if value == nil {
			continue
		}
		if !Assignable(value, spec.Type) {
			typeErrors = append(typeErrors,
				fmt.Sprintf("%s: cannot use %T as %s", spec.Name, value, spec.Type))
		}
	}
	return missing, typeErrors
}

// Assignable reports whether value can serve as the declared type, either
// directly or through a lossless conversion. Conversion rules: anything
// converts to string; numeric types interconvert; string converts to
// integer, number, boolean, and datetime when it parses. Arrays and objects
// are accepted structurally.
func Assignable(value any, typ string) bool {
	switch typ {
	case "string":
		return true
	case "integer":
		return assignableInteger(value)
	case "number":
		return assignableNumber(value)
	case "boolean":
		return assignableBoolean(value)
	case "datetime":
		return assignableDateTime(value)
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		switch value.(type) {
		case []any, []string, []int, []int64, []float64, []bool, []map[string]any:
			return true
		}
		return false
	}
	return false
}

func assignableInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	case float32:
		return v == float32(math.Trunc(float64(v)))
	case float64:
		return v == math.Trunc(v)
	case string:
		_, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return err == nil
	}
	return false
}

func assignableNumber(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	case string:
		_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return err == nil
	}
	return false
}

func assignableBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return true
	case string:
		_, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil
	}
	return false
}

// datetimeLayouts are tried in order when converting a string to a datetime.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func assignableDateTime(value any) bool {
	switch v := value.(type) {
	case time.Time, *time.Time:
		return true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range datetimeLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}

// Describe renders missing-parameter and type-error lists as a single
// rejection message suitable for returning to a model or caller.
func Describe(missing, typeErrors []string) string {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing required parameter(s): "+strings.Join(missing, ", "))
	}
	if len(typeErrors) > 0 {
		parts = append(parts, "type error(s): "+strings.Join(typeErrors, "; "))
	}
	return strings.Join(parts, "; ")
}
