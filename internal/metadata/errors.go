package metadata

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrConfiguration is matched by every *ConfigError.
	ErrConfiguration = errors.New("invalid search configuration")
	// ErrUnknownField is matched by every *UnknownFieldError.
	ErrUnknownField = errors.New("unknown field")
	// ErrAlreadyResolved is returned when descriptors are registered for a type whose
	// metadata has already been requested.
	ErrAlreadyResolved = errors.New("entity metadata already resolved")
)

// ConfigError reports an entity type whose search declarations are invalid, such as
// a missing or repeated identifier member.
type ConfigError struct {
	Type   reflect.Type
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("search configuration of %s: %s", TypeName(e.Type), e.Reason)
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// UnknownFieldError reports a field name (or encoded name) that the entity type does not declare.
type UnknownFieldError struct {
	Type    reflect.Type
	Name    string
	Encoded bool
	// Suggestion is the closest known name, if any is near enough.
	Suggestion string
}

func (e *UnknownFieldError) Error() string {
	kind := "field"
	if e.Encoded {
		kind = "encoded field"
	}
	msg := fmt.Sprintf("unknown %s %q on %s", kind, e.Name, TypeName(e.Type))
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// TypeName returns the package-qualified name of t, or "<nil>".
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
