package scene

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/c360studio/semrec/codec"
	"github.com/c360studio/semrec/temporal"
	"github.com/google/uuid"
)

// PropertyDescription is one described property. Values is the codec field
// map; Value materializes it once and caches the result.
type PropertyDescription struct {
	ID     uuid.UUID
	Name   string
	Type   string
	Values map[string]any

	lexical string

	once  sync.Once
	value any
	err   error
}

// NewPropertyDescription describes a property value through reg.
func NewPropertyDescription(component uuid.UUID, name string, value any, reg *codec.Registry) (*PropertyDescription, error) {
	tag, values, err := reg.Decode(value)
	if err != nil {
		return nil, err
	}
	lexical, err := canonical(values)
	if err != nil {
		return nil, err
	}
	return &PropertyDescription{
		ID:      PropertyID(component, name),
		Name:    name,
		Type:    tag,
		Values:  values,
		lexical: lexical,
	}, nil
}

// PropertyID derives the stable ID of a component's property.
func PropertyID(component uuid.UUID, name string) uuid.UUID {
	return uuid.NewSHA1(component, []byte(name))
}

// Value rehydrates the typed value through reg. The first result, value or
// error, is returned on every later call.
func (p *PropertyDescription) Value(reg *codec.Registry) (any, error) {
	p.once.Do(func() {
		p.value, p.err = reg.Encode(p.Type, p.Values)
		if p.err != nil {
			p.err = fmt.Errorf("property %s: %w", p.Name, p.err)
		}
	})
	return p.value, p.err
}

// Lexical returns the canonical JSON of the field map.
func (p *PropertyDescription) Lexical() string {
	return p.lexical
}

// canonical renders values with sorted keys.
func canonical(values map[string]any) (string, error) {
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("canonical values: %w", err)
	}
	return string(data), nil
}

// ComponentDescription is one described component. Properties keep the order
// they were added in.
type ComponentDescription struct {
	ID        uuid.UUID
	Type      string
	SortOrder int

	properties []*PropertyDescription
	byName     map[string]int
}

// NewComponentDescription creates an empty component description.
func NewComponentDescription(id uuid.UUID, typ string, sortOrder int) *ComponentDescription {
	return &ComponentDescription{ID: id, Type: typ, SortOrder: sortOrder, byName: make(map[string]int)}
}

// Add appends a property, replacing an earlier one of the same name in place.
func (c *ComponentDescription) Add(p *PropertyDescription) {
	if i, ok := c.byName[p.Name]; ok {
		c.properties[i] = p
		return
	}
	c.byName[p.Name] = len(c.properties)
	c.properties = append(c.properties, p)
}

// Property returns the property with the given name.
func (c *ComponentDescription) Property(name string) (*PropertyDescription, bool) {
	i, ok := c.byName[name]
	if !ok {
		return nil, false
	}
	return c.properties[i], true
}

// Properties returns the properties in insertion order.
func (c *ComponentDescription) Properties() []*PropertyDescription {
	return append([]*PropertyDescription(nil), c.properties...)
}

// GameObjectDescription is one described entity.
type GameObjectDescription struct {
	ID     uuid.UUID
	Name   string
	Active bool
	Layer  int
	Tag    string

	Components map[uuid.UUID]*ComponentDescription
}

// SortedComponents returns the components by ascending sort order, ties by ID.
func (g *GameObjectDescription) SortedComponents() []*ComponentDescription {
	out := make([]*ComponentDescription, 0, len(g.Components))
	for _, c := range g.Components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out
}

// ComponentOfType returns the first component of the given type in emission order.
func (g *GameObjectDescription) ComponentOfType(typ string) (*ComponentDescription, bool) {
	for _, c := range g.SortedComponents() {
		if c.Type == typ {
			return c, true
		}
	}
	return nil, false
}

// SceneContent is the whole graph described at one instant.
type SceneContent struct {
	ID          uuid.UUID
	Session     string
	Instant     temporal.Instant
	GameObjects map[uuid.UUID]*GameObjectDescription
}

// SortedGameObjects returns the entities ordered by ID.
func (s *SceneContent) SortedGameObjects() []*GameObjectDescription {
	out := make([]*GameObjectDescription, 0, len(s.GameObjects))
	for _, g := range s.GameObjects {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// FindByName returns the entity with the given name.
func (s *SceneContent) FindByName(name string) (*GameObjectDescription, bool) {
	for _, g := range s.SortedGameObjects() {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

func lessID(a, b uuid.UUID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
