// Package schema converts declared parameter lists to the tool input schema
// shape the Anthropic API expects, and reflects Go structs into parameter
// lists using invopop/jsonschema.
package schema

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/invopop/jsonschema"
)

// Property mirrors the public ParamSpec shape without importing the root
// package.
type Property struct {
	Name        string
	Type        string
	Description string
	Required    bool
	Nested      []Property
}

// ToolInput builds an anthropic.ToolInputSchemaParam from a property list.
// The datetime type tag is encoded as a string with date-time format.
func ToolInput(props []Property) anthropic.ToolInputSchemaParam {
	properties := make(map[string]any, len(props))
	var required []string
	for _, p := range props {
		properties[p.Name] = propertySchema(p)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return anthropic.ToolInputSchemaParam{
		Properties: properties,
		Required:   required,
	}
}

func propertySchema(p Property) map[string]any {
	m := make(map[string]any)
	switch p.Type {
	case "datetime":
		m["type"] = "string"
		m["format"] = "date-time"
	case "":
		m["type"] = "string"
	default:
		m["type"] = p.Type
	}
	if p.Description != "" {
		m["description"] = p.Description
	}
	switch p.Type {
	case "object":
		if len(p.Nested) > 0 {
			nested := make(map[string]any, len(p.Nested))
			var nestedRequired []string
			for _, n := range p.Nested {
				nested[n.Name] = propertySchema(n)
				if n.Required {
					nestedRequired = append(nestedRequired, n.Name)
				}
			}
			m["properties"] = nested
			if len(nestedRequired) > 0 {
				m["required"] = nestedRequired
			}
		}
	case "array":
		// The first nested property, when present, describes the element type.
		if len(p.Nested) > 0 {
			m["items"] = propertySchema(p.Nested[0])
		}
	}
	return m
}

// FromStruct reflects a Go struct type into a property list using its json
// and jsonschema struct tags. Nested structs are inlined rather than emitted
// as $defs references.
func FromStruct[T any]() []Property {
	var zero T
	r := jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true}
	root := r.Reflect(&zero)

	requiredSet := make(map[string]bool, len(root.Required))
	for _, name := range root.Required {
		requiredSet[name] = true
	}

	var props []Property
	if root.Properties != nil {
		for pair := root.Properties.Oldest(); pair != nil; pair = pair.Next() {
			props = append(props, fromSchema(pair.Key, pair.Value, requiredSet[pair.Key]))
		}
	}
	return props
}

func fromSchema(name string, s *jsonschema.Schema, required bool) Property {
	p := Property{
		Name:        name,
		Type:        s.Type,
		Description: s.Description,
		Required:    required,
	}

	// Pointer types reflect as anyOf with a null branch.
	if p.Type == "" && len(s.AnyOf) > 0 {
		for _, sub := range s.AnyOf {
			if sub.Type != "null" && sub.Type != "" {
				p.Type = sub.Type
				break
			}
		}
	}
	if s.Format == "date-time" {
		p.Type = "datetime"
	}

	if s.Properties != nil {
		p.Type = "object"
		nestedRequired := make(map[string]bool, len(s.Required))
		for _, n := range s.Required {
			nestedRequired[n] = true
		}
		for pair := s.Properties.Oldest(); pair != nil; pair = pair.Next() {
			p.Nested = append(p.Nested, fromSchema(pair.Key, pair.Value, nestedRequired[pair.Key]))
		}
	}
	if s.Items != nil {
		p.Nested = append(p.Nested, fromSchema("items", s.Items, false))
	}
	return p
}
