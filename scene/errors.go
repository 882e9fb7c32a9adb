package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNoSnapshot is returned when rebuilding from groups without a snapshot.
var ErrNoSnapshot = errors.New("no snapshot in fact groups")

// DescribeError reports a component that could not be described. The rest of
// the snapshot is still produced.
type DescribeError struct {
	Entity    uuid.UUID
	Component uuid.UUID
	Property  string
	Err       error
}

func (e *DescribeError) Error() string {
	return fmt.Sprintf("describe %s/%s property %q: %v", e.Entity, e.Component, e.Property, e.Err)
}

func (e *DescribeError) Unwrap() error { return e.Err }
