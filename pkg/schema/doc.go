// Package schema compiles function argument declarations into validators.
//
// A function declares its arguments as a map of domain.Property values plus the
// list of required names. Compile turns that declaration into an OpenAPI schema
// (github.com/getkin/kin-openapi) that checks presence, types, enums, array
// bounds and numeric bounds. String properties with format "date" are also
// checked to be calendar dates in YYYY-MM-DD form.
//
// Basic usage:
//
//	args, err := schema.Compile(fn.Properties, fn.Required)
//	if err != nil {
//	    // the declaration itself is broken
//	}
//
//	normalized, err := args.Validate(map[string]any{"destination": "Maui"})
//	for _, e := range schema.ValidationErrors(err) {
//	    // e.(*schema.ValidationError).Key, .Reason
//	}
//
// Parameters renders the same declaration as a JSON Schema object, which is what
// tool-calling language models expect.
package schema
