package registry

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Typed adapts a handler working on Go structs.
//
// Arguments are decoded into A and the returned R is flattened back into a map,
// both through mapstructure, so struct fields use `mapstructure` tags:
//
//	type DatesResult struct {
//	    CheckIn  string `mapstructure:"check_in"`
//	    CheckOut string `mapstructure:"check_out"`
//	}
func Typed[A any, R any](fn func(ctx context.Context, args A) (R, error)) HandlerFunc {
	return func(ctx context.Context, raw map[string]any) (map[string]any, error) {
		var args A
		if err := decode(raw, &args); err != nil {
			return nil, fmt.Errorf("decode arguments: %w", err)
		}

		res, err := fn(ctx, args)
		if err != nil {
			return nil, err
		}

		if m, ok := any(res).(map[string]any); ok {
			return m, nil
		}
		out := make(map[string]any)
		if err := decode(res, &out); err != nil {
			return nil, fmt.Errorf("encode result: %w", err)
		}
		return out, nil
	}
}

func decode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           output,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
