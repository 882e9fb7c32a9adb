package codec

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTag is returned when encoding under a tag nobody registered.
	ErrUnknownTag = errors.New("unknown codec tag")

	// ErrDuplicateTag is returned when a tag or type is registered twice.
	ErrDuplicateTag = errors.New("codec tag already registered")

	// ErrInvalidConstructor is returned when a constructor does not build the registered type.
	ErrInvalidConstructor = errors.New("invalid constructor")
)

// MissingFieldError reports a constructor parameter with no value in the map.
type MissingFieldError struct {
	Tag   string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("codec %s: missing field %q", e.Tag, e.Field)
}

// TypeCoercionError reports a value that cannot be converted to a member's type.
type TypeCoercionError struct {
	Tag    string
	Field  string
	Value  any
	Target string
}

func (e *TypeCoercionError) Error() string {
	return fmt.Sprintf("codec %s: cannot coerce %s (%T) to %s", e.Tag, e.Field, e.Value, e.Target)
}
