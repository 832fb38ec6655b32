package schema

import "github.com/aretw0/voiceflow/pkg/domain"

// Parameters renders the declaration as a JSON Schema object for tool-calling models.
func (a *Arguments) Parameters() map[string]any {
	props := make(map[string]any, len(a.properties))
	for name, p := range a.properties {
		props[name] = property(p)
	}
	out := map[string]any{
		"type":       TypeObject,
		"properties": props,
	}
	if len(a.required) > 0 {
		out["required"] = a.Required()
	}
	return out
}

func property(p domain.Property) map[string]any {
	out := map[string]any{"type": p.Type}
	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Format != "" {
		out["format"] = p.Format
	}
	if p.Items != nil {
		out["items"] = property(*p.Items)
	}
	if p.MinItems != nil {
		out["minItems"] = *p.MinItems
	}
	if p.MaxItems != nil {
		out["maxItems"] = *p.MaxItems
	}
	if p.Minimum != nil {
		out["minimum"] = *p.Minimum
	}
	if p.Maximum != nil {
		out["maximum"] = *p.Maximum
	}
	return out
}
