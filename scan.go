package envist

import (
	"fmt"
	"reflect"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes the typed snapshot into the target struct or map pointer,
// using the "env" struct tag. Conversions are weakly typed, with hooks for
// time.Duration and comma-separated slices.
func (e *Env) Scan(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("scan target must be a non-nil pointer, got %T", target)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "env",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	data := make(map[string]any, len(e.entries))
	for _, key := range e.order {
		data[key] = exportable(e.entries[key].value)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("failed to scan env into %T: %w", target, err)
	}
	return nil
}

// GetTyped retrieves a single value decoded into T, e.g.
// GetTyped[time.Duration](env, "TIMEOUT").
func GetTyped[T any](e *Env, key string) (T, error) {
	var out T

	value, err := e.Get(key)
	if err != nil {
		return out, err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return out, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(exportable(value)); err != nil {
		return out, fmt.Errorf("%w: cannot decode %q into %T: %v", ErrCast, key, out, err)
	}
	return out, nil
}
