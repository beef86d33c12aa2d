package delegate

import (
	"fmt"
	"strings"
)

// TemplateEngine renders prompt text from a template and a binding map.
// Implementations must not fail: when a template cannot be rendered, the raw
// template is returned unmodified.
type TemplateEngine interface {
	Render(template string, bindings map[string]any) string
}

// placeholderEngine is the default TemplateEngine. It substitutes {Key}
// placeholders with the stringified binding value and leaves unknown
// placeholders untouched.
type placeholderEngine struct{}

// NewPlaceholderEngine returns the default {Key}-substitution template engine.
func NewPlaceholderEngine() TemplateEngine {
	return placeholderEngine{}
}

func (placeholderEngine) Render(template string, bindings map[string]any) string {
	if template == "" || len(bindings) == 0 {
		return template
	}
	pairs := make([]string, 0, len(bindings)*2)
	for key, value := range bindings {
		pairs = append(pairs, "{"+key+"}", stringify(value))
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

func stringify(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
