package scene

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/c360studio/semrec/codec"
	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/temporal"
	vocab "github.com/c360studio/semrec/vocabulary/scene"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec struct {
	X float64 `codec:"x"`
	Y float64 `codec:"y"`
}

func newVec(x, y float64) vec { return vec{x, y} }

type fakeComponent struct {
	id    uuid.UUID
	typ   string
	order int
	props []Property
}

func (c *fakeComponent) ID() uuid.UUID          { return c.id }
func (c *fakeComponent) Type() string           { return c.typ }
func (c *fakeComponent) Properties() []Property { return c.props }
func (c *fakeComponent) SortOrder() int         { return c.order }

type fakeEntity struct {
	id         uuid.UUID
	name       string
	components []Component
}

func (e *fakeEntity) ID() uuid.UUID           { return e.id }
func (e *fakeEntity) Name() string            { return e.name }
func (e *fakeEntity) Active() bool            { return true }
func (e *fakeEntity) Layer() int              { return 3 }
func (e *fakeEntity) Tag() string             { return "Untagged" }
func (e *fakeEntity) Components() []Component { return e.components }

type fakeHost []Entity

func (h fakeHost) Entities() []Entity { return h }

func id(n byte) uuid.UUID {
	var u uuid.UUID
	u[15] = n
	return u
}

func testHost() fakeHost {
	player := &fakeEntity{id: id(2), name: "World/Player", components: []Component{
		&fakeComponent{id: id(20), typ: "Health", order: 5, props: []Property{
			{Name: "current", Value: 80},
			{Name: "max", Value: 100},
		}},
		&fakeComponent{id: id(22), typ: "Transform", order: 1, props: []Property{
			{Name: "position", Value: vec{1, 2}},
		}},
		&fakeComponent{id: id(21), typ: "Renderer", order: 1, props: []Property{
			{Name: "visible", Value: true},
		}},
	}}
	enemy := &fakeEntity{id: id(1), name: "World/Enemy", components: []Component{
		&fakeComponent{id: id(10), typ: "Transform", props: []Property{
			{Name: "position", Value: vec{5, 5}},
		}},
	}}
	camera := &fakeEntity{id: id(3), name: "Camera"}
	return fakeHost{player, enemy, camera}
}

func testRegistry(t *testing.T) *codec.Registry {
	t.Helper()
	reg := codec.NewRegistryWithBuiltins()
	require.NoError(t, reg.Register("vec", vec{}, codec.WithConstructor(newVec, "x", "y")))
	return reg
}

func testInstant() temporal.Instant {
	return temporal.NewInstant(time.Date(2024, 6, 1, 8, 0, 0, 500_000_000, time.UTC))
}

func TestScanFilters(t *testing.T) {
	reg := testRegistry(t)

	tests := []struct {
		name  string
		opts  []ScannerOption
		names []string
	}{
		{"everything", nil, []string{"Camera", "World/Enemy", "World/Player"}},
		{"include", []ScannerOption{WithInclude("World/**")}, []string{"World/Enemy", "World/Player"}},
		{"exclude", []ScannerOption{WithExclude("**/Enemy")}, []string{"Camera", "World/Player"}},
		{"both", []ScannerOption{WithInclude("World/*"), WithExclude("*/Player")}, []string{"World/Enemy"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScanner(reg, tt.opts...)
			require.NoError(t, err)
			content, err := s.Scan(testHost(), testInstant())
			require.NoError(t, err)

			var names []string
			for _, g := range content.GameObjects {
				names = append(names, g.Name)
			}
			assert.ElementsMatch(t, tt.names, names)
		})
	}

	_, err := NewScanner(reg, WithInclude("[broken"))
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestScanPartialFailure(t *testing.T) {
	host := testHost()
	player := host[0].(*fakeEntity)
	player.components = append(player.components, &fakeComponent{
		id: id(23), typ: "Broken", props: []Property{{Name: "ratio", Value: math.NaN()}},
	})

	s, err := NewScanner(testRegistry(t))
	require.NoError(t, err)
	content, err := s.Scan(host, testInstant())

	var describeErr *DescribeError
	require.ErrorAs(t, err, &describeErr)
	assert.Equal(t, id(23), describeErr.Component)
	assert.Equal(t, "ratio", describeErr.Property)

	require.NotNil(t, content)
	assert.Len(t, content.GameObjects, 3)
	assert.Len(t, content.GameObjects[id(2)].Components, 3, "other components survive")
}

func TestGroupsOrder(t *testing.T) {
	s, err := NewScanner(testRegistry(t), WithSession("urn:session:1"))
	require.NoError(t, err)
	content, err := s.Scan(testHost(), testInstant())
	require.NoError(t, err)

	groups := content.Groups()
	require.Len(t, groups, 4)
	assert.Equal(t, content.IRI(), groups[0].Subject)
	assert.Equal(t, fact.Ref(EntityPrefix, id(1)), groups[1].Subject)
	assert.Equal(t, fact.Ref(EntityPrefix, id(2)), groups[2].Subject)
	assert.Equal(t, fact.Ref(EntityPrefix, id(3)), groups[3].Subject)

	var components []string
	for _, tr := range groups[2].Triples {
		if tr.Predicate == vocab.EntityComponent {
			components = append(components, tr.Object.(string))
		}
	}
	assert.Equal(t, []string{
		fact.Ref(ComponentPrefix, id(21)),
		fact.Ref(ComponentPrefix, id(22)),
		fact.Ref(ComponentPrefix, id(20)),
	}, components, "sort order, then ID")

	var props []string
	for _, tr := range groups[2].Triples {
		if tr.Predicate == vocab.PropertyName {
			props = append(props, tr.Object.(fact.Literal).Lexical)
		}
	}
	assert.Equal(t, []string{"visible", "position", "current", "max"}, props)

	for _, g := range groups {
		assert.Equal(t, "urn:session:1", g.Session)
		assert.Equal(t, content.Instant.IRI(), g.Instant)
	}
}

func TestGroupsAreByteIdentical(t *testing.T) {
	s, err := NewScanner(testRegistry(t))
	require.NoError(t, err)
	content, err := s.Scan(testHost(), testInstant())
	require.NoError(t, err)

	first, err := json.Marshal(content.Groups())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := json.Marshal(content.Groups())
		require.NoError(t, err)
		require.Equal(t, string(first), string(again))
	}

	rescanned, err := s.Scan(testHost(), testInstant())
	require.NoError(t, err)
	third, err := json.Marshal(rescanned.Groups())
	require.NoError(t, err)
	assert.Equal(t, string(first), string(third), "unchanged scene scans to the same facts")
}

func TestRebuild(t *testing.T) {
	reg := testRegistry(t)
	s, err := NewScanner(reg, WithSession("urn:session:1"))
	require.NoError(t, err)
	content, err := s.Scan(testHost(), testInstant())
	require.NoError(t, err)

	data, err := json.Marshal(content.Groups())
	require.NoError(t, err)
	var stored []fact.Group
	require.NoError(t, json.Unmarshal(data, &stored))

	back, err := Rebuild(stored)
	require.NoError(t, err)
	assert.Equal(t, content.ID, back.ID)
	assert.Equal(t, "urn:session:1", back.Session)
	assert.Equal(t, content.Instant, back.Instant)
	require.Len(t, back.GameObjects, 3)

	player, ok := back.FindByName("World/Player")
	require.True(t, ok)
	assert.True(t, player.Active)
	assert.Equal(t, 3, player.Layer)

	transform, ok := player.ComponentOfType("Transform")
	require.True(t, ok)
	position, ok := transform.Property("position")
	require.True(t, ok)
	v, err := position.Value(reg)
	require.NoError(t, err)
	assert.Equal(t, vec{1, 2}, v)

	health, _ := player.ComponentOfType("Health")
	current, _ := health.Property("current")
	v, err = current.Value(reg)
	require.NoError(t, err)
	assert.Equal(t, 80, v)

	again, err := json.Marshal(back.Groups())
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))

	_, err = Rebuild(nil)
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestRebuildKeepsLargeIntegers(t *testing.T) {
	reg := testRegistry(t)
	s, err := NewScanner(reg)
	require.NoError(t, err)
	big := int64(9007199254740993)
	host := fakeHost{&fakeEntity{id: id(4), name: "Counter", components: []Component{
		&fakeComponent{id: id(40), typ: "Stats", props: []Property{
			{Name: "frames", Value: big},
			{Name: "ratio", Value: 0.25},
		}},
	}}}
	content, err := s.Scan(host, testInstant())
	require.NoError(t, err)

	back, err := Rebuild(content.Groups())
	require.NoError(t, err)
	counter, ok := back.FindByName("Counter")
	require.True(t, ok)
	stats, ok := counter.ComponentOfType("Stats")
	require.True(t, ok)

	frames, _ := stats.Property("frames")
	v, err := frames.Value(reg)
	require.NoError(t, err)
	assert.Equal(t, big, v)

	ratio, _ := stats.Property("ratio")
	v, err = ratio.Value(reg)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)
}

func TestValueIsMemoized(t *testing.T) {
	reg := testRegistry(t)
	p, err := NewPropertyDescription(id(9), "position", vec{3, 4}, reg)
	require.NoError(t, err)
	assert.Equal(t, PropertyID(id(9), "position"), p.ID)
	assert.Equal(t, `{"x":3,"y":4}`, p.Lexical())

	first, err := p.Value(reg)
	require.NoError(t, err)
	p.Values["x"] = 99.0
	second, err := p.Value(reg)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	missing := &PropertyDescription{Name: "broken", Type: "vec", Values: map[string]any{"x": 1.0}}
	_, err = missing.Value(reg)
	var missingErr *codec.MissingFieldError
	assert.ErrorAs(t, err, &missingErr)
}
