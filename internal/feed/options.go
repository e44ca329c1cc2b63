package feed

import (
	"fmt"
)

// OptionType enumerates the value kinds an option schema accepts.
type OptionType string

// Option value kinds.
const (
	OptionString OptionType = "string"
	OptionBool   OptionType = "bool"
	OptionInt    OptionType = "int"
)

// OptionSpec describes one entry of a source's options bag: its type, its
// default, and optional numeric bounds or choice list.
type OptionSpec struct {
	Type    OptionType
	Default any
	Min     *int
	Max     *int
	Choices []string
}

// OptionSchema validates a feed's opaque options bag for one source type.
type OptionSchema map[string]OptionSpec

// Validate checks opts against the schema and returns a normalized copy
// with defaults applied. Unknown keys are rejected so typos surface at
// validation time rather than silently changing behavior.
func (s OptionSchema) Validate(opts map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(s))
	for key, spec := range s {
		if spec.Default != nil {
			out[key] = spec.Default
		}
	}

	for key, val := range opts {
		spec, ok := s[key]
		if !ok {
			return nil, NewValidationError(key, "unknown option")
		}
		normalized, err := spec.check(key, val)
		if err != nil {
			return nil, err
		}
		out[key] = normalized
	}
	return out, nil
}

func (spec OptionSpec) check(key string, val any) (any, error) {
	switch spec.Type {
	case OptionString:
		s, ok := val.(string)
		if !ok {
			return nil, NewValidationError(key, fmt.Sprintf("expected string, got %T", val))
		}
		if len(spec.Choices) > 0 && !contains(spec.Choices, s) {
			return nil, NewValidationError(key, fmt.Sprintf("%q is not one of %v", s, spec.Choices))
		}
		return s, nil
	case OptionBool:
		b, ok := val.(bool)
		if !ok {
			return nil, NewValidationError(key, fmt.Sprintf("expected bool, got %T", val))
		}
		return b, nil
	case OptionInt:
		n, ok := asInt(val)
		if !ok {
			return nil, NewValidationError(key, fmt.Sprintf("expected int, got %T", val))
		}
		if spec.Min != nil && n < *spec.Min {
			return nil, NewValidationError(key, fmt.Sprintf("%d is below minimum %d", n, *spec.Min))
		}
		if spec.Max != nil && n > *spec.Max {
			return nil, NewValidationError(key, fmt.Sprintf("%d is above maximum %d", n, *spec.Max))
		}
		return n, nil
	default:
		return nil, NewValidationError(key, fmt.Sprintf("unknown option type %q", spec.Type))
	}
}

func asInt(val any) (int, bool) {
	switch n := val.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// JSON numbers decode as float64; accept whole values only.
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

// IntPtr is a convenience for building OptionSpec bounds.
func IntPtr(n int) *int { return &n }
