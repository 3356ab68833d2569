// Package params bridges scenario-supplied parameter values into the
// dynamic value representation used throughout the sweep core.
//
// Parameter values are heterogeneous: a single sweep may mix numbers,
// strings and coordinate tuples. They are carried as cty.Value, which
// gives every variant a uniform type tag and a well-defined equality,
// the only two things the scheduler needs from a value.
package params

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// FromGo converts a decoded YAML/JSON scalar or sequence into a cty value.
// Supported inputs are bools, strings, Go numeric types and nested slices
// of those. Maps are rejected: a parameter value is a point, not a record.
func FromGo(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(x), nil
	case string:
		return cty.StringVal(x), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case float32:
		return cty.NumberFloatVal(float64(x)), nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x))
		for i, e := range x {
			ev, err := FromGo(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported parameter value type %T", v)
	}
}

// FromGoSlice converts a sequence of decoded values into cty values.
func FromGoSlice(vs []any) ([]cty.Value, error) {
	out := make([]cty.Value, len(vs))
	for i, v := range vs {
		cv, err := FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("value %d: %w", i, err)
		}
		out[i] = cv
	}
	return out, nil
}

// Equal reports whether two parameter values are the same value.
// Raw equality is used so a number never equals a string and unknowns
// never equal anything, which is exactly the comparison dirtiness needs.
func Equal(a, b cty.Value) bool {
	return a.RawEquals(b)
}

// Float extracts a float64 from a numeric parameter value.
func Float(v cty.Value) (float64, error) {
	if v.IsNull() || !v.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected a number, got %s", typeName(v))
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// String extracts a string from a parameter value.
func String(v cty.Value) (string, error) {
	if v.IsNull() || !v.Type().Equals(cty.String) {
		return "", fmt.Errorf("expected a string, got %s", typeName(v))
	}
	return v.AsString(), nil
}

// Pair extracts an (x, y) coordinate from a two-element numeric tuple.
func Pair(v cty.Value) (float64, float64, error) {
	if v.IsNull() || !v.Type().IsTupleType() || v.LengthInt() != 2 {
		return 0, 0, fmt.Errorf("expected a two-element tuple, got %s", typeName(v))
	}
	it := v.ElementIterator()
	coords := make([]float64, 0, 2)
	for it.Next() {
		_, ev := it.Element()
		f, err := Float(ev)
		if err != nil {
			return 0, 0, fmt.Errorf("tuple element: %w", err)
		}
		coords = append(coords, f)
	}
	return coords[0], coords[1], nil
}

// Floats extracts a slice of float64 from a numeric tuple of any length.
func Floats(v cty.Value) ([]float64, error) {
	if v.IsNull() || !v.Type().IsTupleType() {
		return nil, fmt.Errorf("expected a tuple, got %s", typeName(v))
	}
	out := make([]float64, 0, v.LengthInt())
	it := v.ElementIterator()
	for it.Next() {
		_, ev := it.Element()
		f, err := Float(ev)
		if err != nil {
			return nil, fmt.Errorf("tuple element %d: %w", len(out), err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ToGo converts a parameter value back to a plain Go value suitable for
// JSON encoding. Numbers become float64, tuples become []any.
func ToGo(v cty.Value) any {
	switch {
	case v == cty.NilVal || v.IsNull():
		return nil
	case v.Type().Equals(cty.String):
		return v.AsString()
	case v.Type().Equals(cty.Number):
		f, _ := v.AsBigFloat().Float64()
		return f
	case v.Type().Equals(cty.Bool):
		return v.True()
	case v.Type().IsTupleType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			out = append(out, ToGo(ev))
		}
		return out
	default:
		return v.GoString()
	}
}

// ToGoMap converts a full parameter assignment for JSON encoding.
func ToGoMap(vs map[string]cty.Value) map[string]any {
	out := make(map[string]any, len(vs))
	for k, v := range vs {
		out[k] = ToGo(v)
	}
	return out
}

func typeName(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	return v.Type().FriendlyName()
}

// GoString renders a value for logs and error messages.
func GoString(v cty.Value) string {
	switch {
	case v.IsNull():
		return "null"
	case v.Type().Equals(cty.String):
		return fmt.Sprintf("%q", v.AsString())
	case v.Type().Equals(cty.Number):
		return v.AsBigFloat().Text('g', -1)
	case v.Type().Equals(cty.Bool):
		if v.True() {
			return "true"
		}
		return "false"
	default:
		return v.GoString()
	}
}
