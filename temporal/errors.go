package temporal

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrTicksOutOfRange is returned when a tick rate is outside [1,60].
	ErrTicksOutOfRange = errors.New("ticks per second out of range")

	// ErrUnknownEntity is returned when a timeline has no entity with the given ID.
	ErrUnknownEntity = errors.New("unknown temporal entity")

	// ErrNotInterval is returned when interior instants are added to a plain entity.
	ErrNotInterval = errors.New("temporal entity is not an interval")

	// ErrDuplicateEntity is returned when an entity ID is already held.
	ErrDuplicateEntity = errors.New("temporal entity already exists")
)

// InvalidTemporalStateError reports a Start or End that violates the
// beginning-before-end lifecycle.
type InvalidTemporalStateError struct {
	Entity uuid.UUID
	Op     string
	Reason string
}

func (e *InvalidTemporalStateError) Error() string {
	return fmt.Sprintf("invalid temporal state: %s %s: %s", e.Op, e.Entity, e.Reason)
}
