// Package scene snapshots a live entity graph into description trees and
// renders them as ordered fact groups.
package scene

import "github.com/google/uuid"

// Host is the runtime that owns the live entity graph.
type Host interface {
	Entities() []Entity
}

// Entity is one live object of the scene graph.
type Entity interface {
	ID() uuid.UUID
	Name() string
	Active() bool
	Layer() int
	Tag() string
	Components() []Component
}

// Component is a behavior attached to an entity.
type Component interface {
	ID() uuid.UUID
	Type() string
	Properties() []Property
}

// Ordered is implemented by components with an emission priority.
type Ordered interface {
	SortOrder() int
}

// Property is one readable member of a component.
type Property struct {
	Name  string
	Value any
}
