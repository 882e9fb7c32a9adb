package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))

	errNotCoercible = errors.New("not coercible")
)

// scalar reports whether t is stored under ValueKey rather than per member.
func scalar(t reflect.Type) bool {
	return t.Kind() != reflect.Struct || t == timeType
}

// coerce converts raw into a value of type t.
func (r *Registry) coerce(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	if n, ok := raw.(json.Number); ok {
		if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
			return reflect.ValueOf(number(n)), nil
		}
		raw = string(n)
	}
	v := reflect.ValueOf(raw)
	if v.Type().AssignableTo(t) {
		return reflect.ValueOf(plain(raw)).Convert(t), nil
	}

	switch {
	case t == timeType:
		return coerceTime(v)
	case t == durationType:
		return coerceDuration(v)
	}

	switch t.Kind() {
	case reflect.Pointer:
		inner, err := r.coerce(raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		p := reflect.New(t.Elem())
		p.Elem().Set(inner)
		return p, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", errNotCoercible, n, t)
		}
		out.SetInt(n)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(v)
		if err != nil || n < 0 {
			return reflect.Value{}, fmt.Errorf("%w: %v to %s", errNotCoercible, raw, t)
		}
		out := reflect.New(t).Elem()
		if out.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("%w: %d overflows %s", errNotCoercible, n, t)
		}
		out.SetUint(uint64(n))
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, err := toFloat(v)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		if out.OverflowFloat(f) {
			return reflect.Value{}, fmt.Errorf("%w: %g overflows %s", errNotCoercible, f, t)
		}
		out.SetFloat(f)
		return out, nil

	case reflect.Bool:
		switch v.Kind() {
		case reflect.Bool:
			return v.Convert(t), nil
		case reflect.String:
			b, err := strconv.ParseBool(v.String())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("%w: %v", errNotCoercible, err)
			}
			return reflect.ValueOf(b).Convert(t), nil
		}

	case reflect.String:
		if v.Kind() == reflect.String {
			return v.Convert(t), nil
		}

	case reflect.Struct:
		m, ok := raw.(map[string]any)
		if !ok {
			break
		}
		return r.build(r.descriptorFor(t), m)

	case reflect.Slice:
		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			break
		}
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := r.coerce(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(elem)
		}
		return out, nil

	case reflect.Map:
		if v.Kind() != reflect.Map || t.Key().Kind() != reflect.String || v.Type().Key().Kind() != reflect.String {
			break
		}
		out := reflect.MakeMapWithSize(t, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			elem, err := r.coerce(iter.Value().Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(iter.Key().Convert(t.Key()), elem)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s to %s", errNotCoercible, v.Type(), t)
}

// number decodes n as an int64 when it is integral, a float64 otherwise.
func number(n json.Number) any {
	if i, err := n.Int64(); err == nil {
		return i
	}
	f, _ := n.Float64()
	return f
}

// plain replaces the json.Number values nested in untyped maps and slices.
func plain(raw any) any {
	switch x := raw.(type) {
	case json.Number:
		return number(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = plain(v)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, v := range x {
			out[i] = plain(v)
		}
		return out
	}
	return raw
}

func toInt(v reflect.Value) (int64, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %d overflows int64", errNotCoercible, u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
			return 0, fmt.Errorf("%w: %g is not integral", errNotCoercible, f)
		}
		return int64(f), nil
	case reflect.String:
		n, err := strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errNotCoercible, err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %s to integer", errNotCoercible, v.Type())
}

func toFloat(v reflect.Value) (float64, error) {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.String:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errNotCoercible, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: %s to float", errNotCoercible, v.Type())
}

func coerceTime(v reflect.Value) (reflect.Value, error) {
	if v.Kind() != reflect.String {
		return reflect.Value{}, fmt.Errorf("%w: %s to time", errNotCoercible, v.Type())
	}
	ts, err := time.Parse(time.RFC3339Nano, v.String())
	if err != nil {
		return reflect.Value{}, fmt.Errorf("%w: %v", errNotCoercible, err)
	}
	return reflect.ValueOf(ts), nil
}

func coerceDuration(v reflect.Value) (reflect.Value, error) {
	if v.Kind() == reflect.String {
		if d, err := time.ParseDuration(v.String()); err == nil {
			return reflect.ValueOf(d), nil
		}
	}
	n, err := toInt(v)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(time.Duration(n)), nil
}
