package schema_test

import (
	"testing"

	"github.com/aretw0/voiceflow/pkg/domain"
	"github.com/aretw0/voiceflow/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u64(v uint64) *uint64 { return &v }

func destinationArgs(t *testing.T) *schema.Arguments {
	t.Helper()
	args, err := schema.Compile(map[string]domain.Property{
		"destination": {
			Type:        "string",
			Description: "Selected beach destination",
			Enum:        []any{"Maui", "Cancun", "Maldives"},
		},
	}, []string{"destination"})
	require.NoError(t, err)
	return args
}

func TestValidate_Enum(t *testing.T) {
	args := destinationArgs(t)

	t.Run("Allowed Value", func(t *testing.T) {
		got, err := args.Validate(map[string]any{"destination": "Maui"})
		require.NoError(t, err)
		assert.Equal(t, "Maui", got["destination"])
	})

	t.Run("Value Outside Enum", func(t *testing.T) {
		_, err := args.Validate(map[string]any{"destination": "Atlantis"})
		require.Error(t, err)
		errs := schema.ValidationErrors(err)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "destination")
	})

	t.Run("Missing Required", func(t *testing.T) {
		_, err := args.Validate(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "destination")
	})

	t.Run("Wrong Type", func(t *testing.T) {
		_, err := args.Validate(map[string]any{"destination": 42})
		assert.Error(t, err)
	})
}

func TestValidate_ArrayBounds(t *testing.T) {
	args, err := schema.Compile(map[string]domain.Property{
		"activities": {
			Type:     "array",
			Items:    &domain.Property{Type: "string"},
			MinItems: u64(1),
			MaxItems: u64(3),
		},
	}, []string{"activities"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"One Item", []string{"snorkeling"}, false},
		{"Three Items As Any", []any{"hiking", "skiing", "mountain biking"}, false},
		{"Empty", []string{}, true},
		{"Too Many", []string{"a", "b", "c", "d"}, true},
		{"Wrong Item Type", []any{"hiking", 3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := args.Validate(map[string]any{"activities": tt.value})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, []any{}, got["activities"])
		})
	}
}

func TestValidate_DateFormat(t *testing.T) {
	args, err := schema.Compile(map[string]domain.Property{
		"check_in":  {Type: "string", Format: "date"},
		"check_out": {Type: "string", Format: "date"},
	}, []string{"check_in", "check_out"})
	require.NoError(t, err)

	_, err = args.Validate(map[string]any{"check_in": "2025-06-01", "check_out": "2025-06-08"})
	assert.NoError(t, err)

	_, err = args.Validate(map[string]any{"check_in": "June 1st", "check_out": "2025-02-30"})
	require.Error(t, err)
	errs := schema.ValidationErrors(err)
	require.Len(t, errs, 2)
	keys := []string{errs[0].(*schema.ValidationError).Key, errs[1].(*schema.ValidationError).Key}
	assert.ElementsMatch(t, []string{"check_in", "check_out"}, keys)
}

func TestValidate_OptionalAndExtraArguments(t *testing.T) {
	args, err := schema.Compile(map[string]domain.Property{
		"summary": {Type: "string", Description: "Short summary of the entire conversation."},
	}, nil)
	require.NoError(t, err)

	_, err = args.Validate(map[string]any{})
	assert.NoError(t, err)

	got, err := args.Validate(map[string]any{"summary": "Maui in June", "mood": "happy"})
	require.NoError(t, err)
	assert.Equal(t, "happy", got["mood"])
}

func TestValidate_NumericBounds(t *testing.T) {
	lo, hi := 1.0, 9.0
	args, err := schema.Compile(map[string]domain.Property{
		"travelers": {Type: "integer", Minimum: &lo, Maximum: &hi},
	}, []string{"travelers"})
	require.NoError(t, err)

	_, err = args.Validate(map[string]any{"travelers": 2})
	assert.NoError(t, err)
	_, err = args.Validate(map[string]any{"travelers": 12})
	assert.Error(t, err)
	_, err = args.Validate(map[string]any{"travelers": 2.5})
	assert.Error(t, err)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		props    map[string]domain.Property
		required []string
		want     string
	}{
		{
			name:     "Required Not Declared",
			props:    map[string]domain.Property{"a": {Type: "string"}},
			required: []string{"a", "b"},
			want:     `"b"`,
		},
		{
			name:  "Unknown Type",
			props: map[string]domain.Property{"a": {Type: "date"}},
			want:  "unknown type",
		},
		{
			name:  "Array Without Items",
			props: map[string]domain.Property{"a": {Type: "array"}},
			want:  "requires items",
		},
		{
			name:  "Inverted Bounds",
			props: map[string]domain.Property{"a": {Type: "array", Items: &domain.Property{Type: "string"}, MinItems: u64(4), MaxItems: u64(2)}},
			want:  "exceeds",
		},
		{
			name:  "Unsupported Format",
			props: map[string]domain.Property{"a": {Type: "string", Format: "uuid"}},
			want:  "unsupported format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.Compile(tt.props, tt.required)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParameters(t *testing.T) {
	args, err := schema.Compile(map[string]domain.Property{
		"activities": {
			Type:        "array",
			Description: "Selected activities",
			Items:       &domain.Property{Type: "string"},
			MinItems:    u64(1),
			MaxItems:    u64(3),
		},
	}, []string{"activities"})
	require.NoError(t, err)

	params := args.Parameters()
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"activities"}, params["required"])

	props := params["properties"].(map[string]any)
	activities := props["activities"].(map[string]any)
	assert.Equal(t, "array", activities["type"])
	assert.Equal(t, uint64(3), activities["maxItems"])
	assert.Equal(t, map[string]any{"type": "string"}, activities["items"])
}

func TestParameters_NoRequired(t *testing.T) {
	args, err := schema.Compile(nil, nil)
	require.NoError(t, err)

	params := args.Parameters()
	assert.NotContains(t, params, "required")
	assert.Empty(t, params["properties"])
}
