package codec

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Option configures a Descriptor at registration.
type Option func(*Descriptor) error

// WithConstructor registers a named-parameter constructor. fn must be a
// function taking one argument per name and returning the registered type
// (or a pointer to it), optionally followed by an error.
func WithConstructor(fn any, names ...string) Option {
	return func(d *Descriptor) error {
		v := reflect.ValueOf(fn)
		if v.Kind() != reflect.Func {
			return fmt.Errorf("%w: %T is not a function", ErrInvalidConstructor, fn)
		}
		ft := v.Type()
		if ft.NumIn() != len(names) {
			return fmt.Errorf("%w: %d parameters, %d names", ErrInvalidConstructor, ft.NumIn(), len(names))
		}
		if ft.IsVariadic() {
			return fmt.Errorf("%w: variadic constructors are not supported", ErrInvalidConstructor)
		}
		switch ft.NumOut() {
		case 1:
		case 2:
			if ft.Out(1) != errorType {
				return fmt.Errorf("%w: second result must be error", ErrInvalidConstructor)
			}
		default:
			return fmt.Errorf("%w: must return the value and an optional error", ErrInvalidConstructor)
		}
		out := ft.Out(0)
		if out != d.Type && !(out.Kind() == reflect.Pointer && out.Elem() == d.Type) {
			return fmt.Errorf("%w: returns %s, want %s", ErrInvalidConstructor, out, d.Type)
		}

		c := constructor{fn: v, names: names}
		for i := range names {
			c.in = append(c.in, ft.In(i))
		}
		d.constructors = append(d.constructors, c)
		sort.SliceStable(d.constructors, func(i, j int) bool {
			return len(d.constructors[i].names) > len(d.constructors[j].names)
		})
		return nil
	}
}

type constructor struct {
	fn    reflect.Value
	names []string
	in    []reflect.Type
}

type member struct {
	name  string
	index []int
	typ   reflect.Type
}

// Descriptor is the construction and member-binding plan of one type, built
// once when the type is registered.
type Descriptor struct {
	Tag  string
	Type reflect.Type

	constructors []constructor
	members      []member
}

func newDescriptor(tag string, t reflect.Type) *Descriptor {
	d := &Descriptor{Tag: tag, Type: t}
	if t.Kind() != reflect.Struct {
		return d
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("codec"); ok {
			if tag == "-" {
				continue
			}
			if n, _, _ := strings.Cut(tag, ","); n != "" {
				name = n
			}
		}
		d.members = append(d.members, member{name: name, index: f.Index, typ: f.Type})
	}
	return d
}

// Members returns the names of the writable members, in declaration order.
func (d *Descriptor) Members() []string {
	out := make([]string, len(d.members))
	for i, m := range d.members {
		out[i] = m.name
	}
	return out
}

// Parameters returns the parameter names of the widest constructor, or nil.
func (d *Descriptor) Parameters() []string {
	if len(d.constructors) == 0 {
		return nil
	}
	return append([]string(nil), d.constructors[0].names...)
}

func (d *Descriptor) member(name string) (member, bool) {
	for _, m := range d.members {
		if m.name == name {
			return m, true
		}
	}
	for _, m := range d.members {
		if strings.EqualFold(m.name, name) {
			return m, true
		}
	}
	return member{}, false
}

// lookup finds a value by exact key, then case-insensitively.
func lookup(values map[string]any, name string) (any, bool) {
	if v, ok := values[name]; ok {
		return v, true
	}
	for k, v := range values {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}
