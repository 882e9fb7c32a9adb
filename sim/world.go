// Package sim is a small in-process scene host: circular bodies moving in a
// bounded box, reporting contacts as they begin and end.
package sim

import (
	"math"
	"sort"
	"time"

	"github.com/c360studio/semrec/codec"
	"github.com/c360studio/semrec/scene"
	"github.com/google/uuid"
)

var worldNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://semrec.dev/sim"))

// Vector2 is a point or velocity in world units.
type Vector2 struct {
	X float64 `codec:"x"`
	Y float64 `codec:"y"`
}

// NewVector2 is the codec constructor of Vector2.
func NewVector2(x, y float64) Vector2 { return Vector2{X: x, Y: y} }

// Register adds the simulation value types to reg.
func Register(reg *codec.Registry) error {
	return reg.Register("vector2", Vector2{}, codec.WithConstructor(NewVector2, "x", "y"))
}

// Body is the physics component of an object.
type Body struct {
	id       uuid.UUID
	Position Vector2
	Velocity Vector2
	Radius   float64
}

func (b *Body) ID() uuid.UUID  { return b.id }
func (b *Body) Type() string   { return "Body" }
func (b *Body) SortOrder() int { return 0 }

func (b *Body) Properties() []scene.Property {
	return []scene.Property{
		{Name: "position", Value: b.Position},
		{Name: "velocity", Value: b.Velocity},
		{Name: "radius", Value: b.Radius},
	}
}

// Health is a damageable component.
type Health struct {
	id      uuid.UUID
	Current int
	Max     int
}

func (h *Health) ID() uuid.UUID  { return h.id }
func (h *Health) Type() string   { return "Health" }
func (h *Health) SortOrder() int { return 10 }

func (h *Health) Properties() []scene.Property {
	return []scene.Property{
		{Name: "current", Value: h.Current},
		{Name: "max", Value: h.Max},
	}
}

// Object is one entity of the world.
type Object struct {
	id          uuid.UUID
	name        string
	Tagged      string
	Hidden      bool
	RenderLayer int
	Body        *Body
	Health      *Health
}

func (o *Object) ID() uuid.UUID { return o.id }
func (o *Object) Name() string  { return o.name }
func (o *Object) Active() bool  { return !o.Hidden }
func (o *Object) Layer() int    { return o.RenderLayer }
func (o *Object) Tag() string   { return o.Tagged }

func (o *Object) Components() []scene.Component {
	out := []scene.Component{o.Body}
	if o.Health != nil {
		out = append(out, o.Health)
	}
	return out
}

// Contact reports two objects starting or ceasing to overlap.
type Contact struct {
	Sender   uuid.UUID
	Receiver uuid.UUID
	Began    bool
}

// World holds the objects. It is not safe for concurrent use.
type World struct {
	Width, Height float64

	objects  []*Object
	byName   map[string]*Object
	touching map[[2]uuid.UUID]bool
}

// NewWorld creates an empty world of the given size.
func NewWorld(width, height float64) *World {
	return &World{
		Width:    width,
		Height:   height,
		byName:   make(map[string]*Object),
		touching: make(map[[2]uuid.UUID]bool),
	}
}

// Spawn adds an object. IDs derive from the name, so the same world built
// twice has the same IDs; spawning a taken name returns the existing object.
func (w *World) Spawn(name string, pos, vel Vector2, radius float64) *Object {
	if o, ok := w.byName[name]; ok {
		return o
	}
	id := uuid.NewSHA1(worldNamespace, []byte(name))
	o := &Object{
		id:     id,
		name:   name,
		Tagged: "Untagged",
		Body: &Body{
			id:       uuid.NewSHA1(id, []byte("Body")),
			Position: pos,
			Velocity: vel,
			Radius:   radius,
		},
	}
	w.objects = append(w.objects, o)
	w.byName[name] = o
	return o
}

// WithHealth attaches a Health component.
func (o *Object) WithHealth(max int) *Object {
	o.Health = &Health{id: uuid.NewSHA1(o.id, []byte("Health")), Current: max, Max: max}
	return o
}

// Find returns the object with the given name.
func (w *World) Find(name string) (*Object, bool) {
	o, ok := w.byName[name]
	return o, ok
}

// Entities implements scene.Host.
func (w *World) Entities() []scene.Entity {
	out := make([]scene.Entity, 0, len(w.objects))
	for _, o := range w.objects {
		out = append(out, o)
	}
	return out
}

// Step advances every active body by dt, bouncing off the walls, and returns
// the contacts that began or ended, ordered by sender then receiver.
func (w *World) Step(dt time.Duration) []Contact {
	s := dt.Seconds()
	for _, o := range w.objects {
		if o.Hidden {
			continue
		}
		b := o.Body
		b.Position.X += b.Velocity.X * s
		b.Position.Y += b.Velocity.Y * s
		b.Position.X, b.Velocity.X = bounce(b.Position.X, b.Velocity.X, b.Radius, w.Width)
		b.Position.Y, b.Velocity.Y = bounce(b.Position.Y, b.Velocity.Y, b.Radius, w.Height)
	}

	var contacts []Contact
	for i, a := range w.objects {
		for _, b := range w.objects[i+1:] {
			key := pairKey(a.id, b.id)
			now := !a.Hidden && !b.Hidden && overlaps(a.Body, b.Body)
			if now == w.touching[key] {
				continue
			}
			if now {
				w.touching[key] = true
				if a.Health != nil && a.Health.Current > 0 {
					a.Health.Current--
				}
				if b.Health != nil && b.Health.Current > 0 {
					b.Health.Current--
				}
			} else {
				delete(w.touching, key)
			}
			contacts = append(contacts, Contact{Sender: key[0], Receiver: key[1], Began: now})
		}
	}
	sort.Slice(contacts, func(i, j int) bool {
		if contacts[i].Sender != contacts[j].Sender {
			return contacts[i].Sender.String() < contacts[j].Sender.String()
		}
		return contacts[i].Receiver.String() < contacts[j].Receiver.String()
	})
	return contacts
}

func bounce(p, v, r, limit float64) (float64, float64) {
	switch {
	case p-r < 0:
		return r, math.Abs(v)
	case p+r > limit:
		return limit - r, -math.Abs(v)
	}
	return p, v
}

// overlaps reports whether two bodies overlap or touch.
func overlaps(a, b *Body) bool {
	dx := a.Position.X - b.Position.X
	dy := a.Position.Y - b.Position.Y
	return math.Hypot(dx, dy) <= a.Radius+b.Radius
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if a.String() > b.String() {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}
