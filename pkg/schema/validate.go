package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// Validate checks raw model arguments against the compiled declaration.
//
// The payload is first normalized to its JSON shape (numbers become float64,
// typed slices become []any) so that arguments arriving from different drivers
// validate identically. The normalized payload is returned on success.
// Failures are reported as an *AggregateError of *ValidationError.
func (a *Arguments) Validate(args map[string]any) (map[string]any, error) {
	if args == nil {
		args = map[string]any{}
	}

	raw, err := normalize(args)
	if err != nil {
		return nil, &AggregateError{Errors: []error{&ValidationError{Reason: err.Error()}}}
	}
	data, ok := raw.(map[string]any)
	if !ok {
		data = map[string]any{}
	}

	var errs []error
	if err := a.schema.VisitJSON(data, openapi3.MultiErrors()); err != nil {
		errs = append(errs, flatten(err)...)
	}
	for _, path := range a.dates {
		errs = append(errs, checkDates(data, path, nil)...)
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return data, nil
}

// normalize round-trips v through JSON.
func normalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("arguments are not JSON encodable: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func flatten(err error) []error {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		var out []error
		for _, e := range multi {
			out = append(out, flatten(e)...)
		}
		return out
	}

	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		return []error{&ValidationError{
			Key:    strings.Join(se.JSONPointer(), "/"),
			Reason: se.Reason,
			Value:  se.Value,
		}}
	}
	return []error{&ValidationError{Reason: err.Error()}}
}

// checkDates walks data along path and validates every string it reaches.
// Type mismatches are left to the schema validator.
func checkDates(data any, path []string, at []string) []error {
	if len(path) == 0 {
		s, ok := data.(string)
		if !ok {
			return nil
		}
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			return []error{&ValidationError{
				Key:    strings.Join(at, "/"),
				Reason: "must be a date in YYYY-MM-DD format",
				Value:  s,
			}}
		}
		return nil
	}

	head := path[0]
	if head == "*" {
		items, ok := data.([]any)
		if !ok {
			return nil
		}
		var errs []error
		for i, item := range items {
			errs = append(errs, checkDates(item, path[1:], append(at, fmt.Sprint(i)))...)
		}
		return errs
	}

	obj, ok := data.(map[string]any)
	if !ok {
		return nil
	}
	v, ok := obj[head]
	if !ok {
		return nil
	}
	return checkDates(v, path[1:], append(at, head))
}
