package delegate

import (
	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ajharte/delegate-go/internal/schema"
)

// ParamType is the declared type tag of a tool or input parameter.
type ParamType string

const (
	TypeString   ParamType = "string"
	TypeInteger  ParamType = "integer"
	TypeNumber   ParamType = "number"
	TypeBoolean  ParamType = "boolean"
	TypeDateTime ParamType = "datetime"
	TypeObject   ParamType = "object"
	TypeArray    ParamType = "array"
)

// ParamSpec describes one parameter of a delegation input or a dynamically
// registered tool. Object and array parameters may carry a nested schema;
// nested schemas are passed through to the model but not deep-validated here.
type ParamSpec struct {
	Name        string      `json:"name"`
	Type        ParamType   `json:"type"`
	Description string      `json:"description,omitempty"`
	Required    bool        `json:"required,omitempty"`
	Nested      []ParamSpec `json:"nested,omitempty"`
}

// ParamsFromStruct derives a parameter schema from a Go struct type using its
// json and jsonschema struct tags. Convenient for declaring return-tool
// parameters as typed structs.
func ParamsFromStruct[T any]() []ParamSpec {
	return specsFromProperties(schema.FromStruct[T]())
}

// SchemaParam converts the parameter list into the tool input schema shape
// the host's LLM-calling layer exposes to the model.
func SchemaParam(params []ParamSpec) anthropic.ToolInputSchemaParam {
	return schema.ToolInput(propertiesFromSpecs(params))
}

func propertiesFromSpecs(params []ParamSpec) []schema.Property {
	props := make([]schema.Property, 0, len(params))
	for _, p := range params {
		props = append(props, schema.Property{
			Name:        p.Name,
			Type:        string(p.Type),
			Description: p.Description,
			Required:    p.Required,
			Nested:      propertiesFromSpecs(p.Nested),
		})
	}
	return props
}

func specsFromProperties(props []schema.Property) []ParamSpec {
	specs := make([]ParamSpec, 0, len(props))
	for _, p := range props {
		specs = append(specs, ParamSpec{
			Name:        p.Name,
			Type:        ParamType(p.Type),
			Description: p.Description,
			Required:    p.Required,
			Nested:      specsFromProperties(p.Nested),
		})
	}
	return specs
}
