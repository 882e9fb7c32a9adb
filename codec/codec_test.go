package codec

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vector3 struct {
	X float64 `codec:"x"`
	Y float64 `codec:"y"`
	Z float64 `codec:"z"`
}

func newVector3(x, y, z float64) vector3 { return vector3{X: x, Y: y, Z: z} }

func newVector2(x, y float64) vector3 { return vector3{X: x, Y: y} }

type color struct {
	R, G, B float32
	Name    string `codec:"name"`
	hidden  int
}

type transform struct {
	Position vector3
	Scale    *vector3
	Path     []vector3
	Label    string
	Ignored  string `codec:"-"`
	Every    time.Duration
	Since    time.Time
}

type bounded struct {
	Min int
}

func newBounded(floor int) (*bounded, error) {
	if floor < 0 {
		return nil, errors.New("negative minimum")
	}
	return &bounded{Min: floor}, nil
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistryWithBuiltins()
	require.NoError(t, r.Register("vector3", vector3{},
		WithConstructor(newVector2, "x", "y"),
		WithConstructor(newVector3, "x", "y", "z")))
	require.NoError(t, r.Register("color", &color{}))
	require.NoError(t, r.Register("transform", transform{}))
	require.NoError(t, r.Register("bounded", bounded{}, WithConstructor(newBounded, "min")))
	return r
}

func TestRoundTripThroughWidestConstructor(t *testing.T) {
	r := testRegistry(t)
	in := vector3{X: 1.5, Y: -2, Z: 3.25}

	tag, values, err := r.Decode(in)
	require.NoError(t, err)
	assert.Equal(t, "vector3", tag)
	assert.Equal(t, map[string]any{"x": 1.5, "y": -2.0, "z": 3.25}, values)

	out, err := r.Encode(tag, values)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	d, ok := r.Lookup("vector3")
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y", "z"}, d.Parameters())
}

func TestMissingConstructorField(t *testing.T) {
	r := testRegistry(t)

	_, err := r.Encode("vector3", map[string]any{"x": 1.0, "y": 2.0})
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "z", missing.Field)
	assert.Equal(t, "vector3", missing.Tag)
}

func TestConstructorMatchesNamesCaseInsensitively(t *testing.T) {
	r := testRegistry(t)
	out, err := r.Encode("vector3", map[string]any{"X": 1, "Y": "2", "z": json.Number("3")})
	require.NoError(t, err)
	assert.Equal(t, vector3{1, 2, 3}, out)
}

func TestEncodeNumbers(t *testing.T) {
	r := NewRegistryWithBuiltins()
	big := int64(1<<53 + 1)

	out, err := r.Encode("int64", map[string]any{ValueKey: json.Number("9007199254740993")})
	require.NoError(t, err)
	assert.Equal(t, big, out)

	out, err = r.Encode("float64", map[string]any{ValueKey: json.Number("2.5")})
	require.NoError(t, err)
	assert.Equal(t, 2.5, out)

	out, err = r.Encode(OpaqueTag, map[string]any{ValueKey: []any{json.Number("9007199254740993"), json.Number("0.5")}})
	require.NoError(t, err)
	assert.Equal(t, []any{big, 0.5}, out)
}

func TestConstructorError(t *testing.T) {
	r := testRegistry(t)

	out, err := r.Encode("bounded", map[string]any{"min": 4})
	require.NoError(t, err)
	assert.Equal(t, bounded{Min: 4}, out)

	_, err = r.Encode("bounded", map[string]any{"min": -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative minimum")
}

func TestMemberAssignmentFallback(t *testing.T) {
	r := testRegistry(t)

	out, err := r.Encode("color", map[string]any{
		"r":       0.5,
		"G":       1,
		"name":    "teal",
		"hidden":  9,
		"unknown": true,
	})
	require.NoError(t, err)
	assert.Equal(t, color{R: 0.5, G: 1, Name: "teal"}, out)
}

func TestTypeCoercionError(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name   string
		tag    string
		values map[string]any
		field  string
	}{
		{"string into float", "color", map[string]any{"R": "bright"}, "R"},
		{"fraction into int", "bounded", map[string]any{"min": 1.5}, "min"},
		{"bool into string", "color", map[string]any{"name": true}, "name"},
		{"number into nested struct", "transform", map[string]any{"Position": 3}, "Position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Encode(tt.tag, tt.values)
			var coercion *TypeCoercionError
			require.ErrorAs(t, err, &coercion)
			assert.Equal(t, tt.field, coercion.Field)
		})
	}
}

func TestNestedValuesSurviveJSON(t *testing.T) {
	r := testRegistry(t)
	in := transform{
		Position: vector3{1, 2, 3},
		Scale:    &vector3{2, 2, 2},
		Path:     []vector3{{0, 0, 0}, {1, 1, 1}},
		Label:    "root",
		Ignored:  "dropped",
		Every:    250 * time.Millisecond,
		Since:    time.Date(2024, 1, 1, 12, 0, 0, 5, time.UTC),
	}

	tag, values, err := r.Decode(&in)
	require.NoError(t, err)
	assert.NotContains(t, values, "Ignored")

	data, err := json.Marshal(values)
	require.NoError(t, err)
	var back map[string]any
	require.NoError(t, json.Unmarshal(data, &back))

	out, err := r.Encode(tag, back)
	require.NoError(t, err)

	want := in
	want.Ignored = ""
	got := out.(transform)
	assert.True(t, want.Since.Equal(got.Since))
	got.Since = want.Since
	assert.Equal(t, want, got)
}

func TestScalarsAndOpaque(t *testing.T) {
	r := testRegistry(t)

	tag, values, err := r.Decode(42)
	require.NoError(t, err)
	assert.Equal(t, "int", tag)
	out, err := r.Encode(tag, map[string]any{ValueKey: 42.0})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, map[string]any{ValueKey: 42}, values)

	type unregistered struct{ A int }
	tag, values, err = r.Decode(unregistered{A: 1})
	require.NoError(t, err)
	assert.Equal(t, OpaqueTag, tag)
	out, err = r.Encode(tag, values)
	require.NoError(t, err)
	assert.Equal(t, unregistered{A: 1}, out)

	out, err = r.Encode("duration", map[string]any{ValueKey: "1.5s"})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, out)

	tag, _, err = r.Decode(nil)
	require.NoError(t, err)
	assert.Equal(t, OpaqueTag, tag)
}

func TestRegisterErrors(t *testing.T) {
	r := testRegistry(t)

	assert.ErrorIs(t, r.Register("vector3", struct{}{}), ErrDuplicateTag)
	assert.ErrorIs(t, r.Register("other-vector", vector3{}), ErrDuplicateTag)
	assert.ErrorIs(t, r.Register(OpaqueTag, struct{}{}), ErrDuplicateTag)

	type point struct{ X int }
	tests := []struct {
		name string
		opt  Option
	}{
		{"not a function", WithConstructor(42)},
		{"arity mismatch", WithConstructor(func(x int) point { return point{x} }, "x", "y")},
		{"wrong result", WithConstructor(func(x int) int { return x }, "x")},
		{"bad second result", WithConstructor(func(x int) (point, int) { return point{x}, 0 }, "x")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register("point", point{}, tt.opt)
			assert.ErrorIs(t, err, ErrInvalidConstructor)
		})
	}

	_, err := r.Encode("nothing", nil)
	assert.ErrorIs(t, err, ErrUnknownTag)
	assert.Contains(t, r.Tags(), "transform")
}
