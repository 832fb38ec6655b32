package schema

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/getkin/kin-openapi/openapi3"
)

// Supported property types.
const (
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

// FormatDate marks a string property holding a YYYY-MM-DD calendar date.
const FormatDate = "date"

// Arguments is the compiled form of a function's argument declaration.
// It is immutable and safe for concurrent use.
type Arguments struct {
	properties map[string]domain.Property
	required   []string
	schema     *openapi3.Schema
	dates      [][]string // paths of date-formatted values; "*" matches any array index
}

// Compile validates a declaration and builds its validator.
func Compile(properties map[string]domain.Property, required []string) (*Arguments, error) {
	var problems []string

	root := openapi3.NewObjectSchema()
	a := &Arguments{
		properties: properties,
		required:   slices.Clone(required),
	}

	for _, name := range sortedKeys(properties) {
		prop, err := a.build([]string{name}, properties[name])
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		root.WithProperty(name, prop)
	}

	for _, name := range required {
		if _, ok := properties[name]; !ok {
			problems = append(problems, fmt.Sprintf("required argument %q is not a declared property", name))
		}
	}
	root.Required = a.required

	if len(problems) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	if err := root.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid argument schema: %w", err)
	}

	a.schema = root
	return a, nil
}

func (a *Arguments) build(path []string, p domain.Property) (*openapi3.Schema, error) {
	field := strings.Join(path, "/")

	var s *openapi3.Schema
	switch p.Type {
	case TypeString:
		s = openapi3.NewStringSchema()
		switch p.Format {
		case "":
		case FormatDate:
			a.dates = append(a.dates, slices.Clone(path))
		default:
			return nil, fmt.Errorf("argument %q: unsupported format %q", field, p.Format)
		}
	case TypeNumber:
		s = openapi3.NewFloat64Schema()
	case TypeInteger:
		s = openapi3.NewIntegerSchema()
	case TypeBoolean:
		s = openapi3.NewBoolSchema()
	case TypeObject:
		s = openapi3.NewObjectSchema()
	case TypeArray:
		if p.Items == nil {
			return nil, fmt.Errorf("argument %q: array requires items", field)
		}
		items, err := a.build(append(slices.Clone(path), "*"), *p.Items)
		if err != nil {
			return nil, err
		}
		s = openapi3.NewArraySchema().WithItems(items)
		if p.MinItems != nil {
			s = s.WithMinItems(int64(*p.MinItems))
		}
		if p.MaxItems != nil {
			s = s.WithMaxItems(int64(*p.MaxItems))
		}
		if p.MinItems != nil && p.MaxItems != nil && *p.MinItems > *p.MaxItems {
			return nil, fmt.Errorf("argument %q: minItems %d exceeds maxItems %d", field, *p.MinItems, *p.MaxItems)
		}
	case "":
		return nil, fmt.Errorf("argument %q: missing type", field)
	default:
		return nil, fmt.Errorf("argument %q: unknown type %q", field, p.Type)
	}

	if p.Minimum != nil {
		s = s.WithMin(*p.Minimum)
	}
	if p.Maximum != nil {
		s = s.WithMax(*p.Maximum)
	}
	if p.Minimum != nil && p.Maximum != nil && *p.Minimum > *p.Maximum {
		return nil, fmt.Errorf("argument %q: minimum exceeds maximum", field)
	}

	if len(p.Enum) > 0 {
		values, err := normalize(p.Enum)
		if err != nil {
			return nil, fmt.Errorf("argument %q: enum: %w", field, err)
		}
		s = s.WithEnum(values.([]any)...)
	}

	s.Description = p.Description
	return s, nil
}

// Properties returns the declaration the validator was compiled from.
func (a *Arguments) Properties() map[string]domain.Property {
	return a.properties
}

// Required returns the names of the mandatory arguments.
func (a *Arguments) Required() []string {
	return slices.Clone(a.required)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
