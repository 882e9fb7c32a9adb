// Package codec converts typed values to flat field maps and back.
//
// Types are described once, at registration, under a semantic tag. Encoding
// a map into a registered type prefers the widest named-parameter
// constructor; without one the zero value is populated member by member.
package codec

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"
)

// OpaqueTag marks untyped values. Encoding under it returns values["value"].
const OpaqueTag = ""

// ValueKey is the map key holding an opaque or non-struct value.
const ValueKey = "value"

// Registry maps semantic tags to type descriptors.
type Registry struct {
	mu     sync.RWMutex
	byTag  map[string]*Descriptor
	byType map[reflect.Type]*Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byTag:  make(map[string]*Descriptor),
		byType: make(map[reflect.Type]*Descriptor),
	}
}

// NewRegistryWithBuiltins creates a registry with the scalar tags
// registered (see RegisterBuiltins).
func NewRegistryWithBuiltins() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// RegisterBuiltins registers the scalar types every host shares.
func RegisterBuiltins(r *Registry) {
	r.MustRegister("string", "")
	r.MustRegister("int", 0)
	r.MustRegister("int64", int64(0))
	r.MustRegister("float32", float32(0))
	r.MustRegister("float64", float64(0))
	r.MustRegister("bool", false)
	r.MustRegister("time", time.Time{})
	r.MustRegister("duration", time.Duration(0))
}

// Register describes prototype's type under tag. Pointers are registered as
// their element type.
func (r *Registry) Register(tag string, prototype any, opts ...Option) error {
	if tag == OpaqueTag {
		return fmt.Errorf("register: %w: the opaque tag is reserved", ErrDuplicateTag)
	}
	t := reflect.TypeOf(prototype)
	if t == nil {
		return fmt.Errorf("register %s: nil prototype", tag)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	d := newDescriptor(tag, t)
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byTag[tag]; ok {
		return fmt.Errorf("register %s: %w", tag, ErrDuplicateTag)
	}
	if prev, ok := r.byType[t]; ok {
		return fmt.Errorf("register %s: %w: %s is registered as %s", tag, ErrDuplicateTag, t, prev.Tag)
	}
	r.byTag[tag] = d
	r.byType[t] = d
	return nil
}

// MustRegister is Register that panics on error, for startup registration.
func (r *Registry) MustRegister(tag string, prototype any, opts ...Option) {
	if err := r.Register(tag, prototype, opts...); err != nil {
		panic(err)
	}
}

// Lookup returns the descriptor registered under tag.
func (r *Registry) Lookup(tag string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byTag[tag]
	return d, ok
}

// Tags returns every registered tag, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byTag))
	for tag := range r.byTag {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) forType(t reflect.Type) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byType[t]
	return d, ok
}

// descriptorFor returns the registered descriptor of t or an unregistered
// member plan for nested values.
func (r *Registry) descriptorFor(t reflect.Type) *Descriptor {
	if d, ok := r.forType(t); ok {
		return d
	}
	return newDescriptor(t.String(), t)
}

// Encode builds the value described by values under tag.
func (r *Registry) Encode(tag string, values map[string]any) (any, error) {
	if tag == OpaqueTag {
		return plain(values[ValueKey]), nil
	}
	d, ok := r.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("encode: %w: %q", ErrUnknownTag, tag)
	}
	v, err := r.build(d, values)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (r *Registry) build(d *Descriptor, values map[string]any) (reflect.Value, error) {
	if len(d.constructors) > 0 {
		return r.construct(d, d.constructors[0], values)
	}
	if scalar(d.Type) {
		raw, ok := lookup(values, ValueKey)
		if !ok {
			return reflect.Zero(d.Type), nil
		}
		v, err := r.coerce(raw, d.Type)
		if err != nil {
			return reflect.Value{}, &TypeCoercionError{Tag: d.Tag, Field: ValueKey, Value: raw, Target: d.Type.String()}
		}
		return v, nil
	}

	out := reflect.New(d.Type).Elem()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		m, ok := d.member(k)
		if !ok {
			continue
		}
		v, err := r.coerce(values[k], m.typ)
		if err != nil {
			return reflect.Value{}, &TypeCoercionError{Tag: d.Tag, Field: k, Value: values[k], Target: m.typ.String()}
		}
		out.FieldByIndex(m.index).Set(v)
	}
	return out, nil
}

func (r *Registry) construct(d *Descriptor, c constructor, values map[string]any) (reflect.Value, error) {
	args := make([]reflect.Value, len(c.names))
	for i, name := range c.names {
		raw, ok := lookup(values, name)
		if !ok {
			return reflect.Value{}, &MissingFieldError{Tag: d.Tag, Field: name}
		}
		v, err := r.coerce(raw, c.in[i])
		if err != nil {
			return reflect.Value{}, &TypeCoercionError{Tag: d.Tag, Field: name, Value: raw, Target: c.in[i].String()}
		}
		args[i] = v
	}

	out := c.fn.Call(args)
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("construct %s: %w", d.Tag, out[1].Interface().(error))
	}
	v := out[0]
	if v.Kind() == reflect.Pointer && v.Type().Elem() == d.Type {
		if v.IsNil() {
			return reflect.Value{}, fmt.Errorf("construct %s: constructor returned nil", d.Tag)
		}
		v = v.Elem()
	}
	return v, nil
}

// Decode names each readable member of v. Unregistered values decode as
// opaque with the value itself under ValueKey.
func (r *Registry) Decode(v any) (string, map[string]any, error) {
	if v == nil {
		return OpaqueTag, map[string]any{ValueKey: nil}, nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return OpaqueTag, map[string]any{ValueKey: nil}, nil
		}
		rv = rv.Elem()
	}

	d, ok := r.forType(rv.Type())
	if !ok {
		return OpaqueTag, map[string]any{ValueKey: v}, nil
	}
	if scalar(d.Type) {
		return d.Tag, map[string]any{ValueKey: rv.Interface()}, nil
	}
	return d.Tag, r.fields(d, rv), nil
}

func (r *Registry) fields(d *Descriptor, rv reflect.Value) map[string]any {
	out := make(map[string]any, len(d.members))
	for _, m := range d.members {
		out[m.name] = r.plain(rv.FieldByIndex(m.index))
	}
	return out
}

// plain turns nested structs into field maps so they survive a JSON round trip
// under their member names.
func (r *Registry) plain(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return r.plain(v.Elem())
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface()
		}
		return r.fields(r.descriptorFor(v.Type()), v)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = r.plain(v.Index(i))
		}
		return out
	default:
		return v.Interface()
	}
}
