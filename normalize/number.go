package normalize

import (
	"encoding/json"
	"math"
	"strconv"

	"finn_scrooper/models"
)

// AverageRange takes the first two values of a range-like object, in key
// order, and returns their mean rounded to the nearest integer. Anything
// that is not an object with two numeric leading values gives nil.
func AverageRange(v any) *float64 {
	obj, ok := v.(*models.Object)
	if !ok || obj.Len() < 2 {
		return nil
	}

	vals := obj.Values()
	low, ok := Float(vals[0])
	if !ok {
		return nil
	}
	high, ok := Float(vals[1])
	if !ok {
		return nil
	}

	avg := math.Round((low + high) / 2)
	return &avg
}

// Float accepts JSON numbers and Go numeric types. Strings are not
// coerced, even when they look numeric.
func Float(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int accepts whole numbers only; 2.5 bedrooms is malformed.
func Int(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	case int:
		return int64(n), true
	case int64:
		return n, true
	}

	f, ok := Float(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Text returns strings as-is. Anything else is nil.
func Text(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// Token renders an opaque identifier: strings verbatim, whole numbers in
// decimal.
func Token(v any) *string {
	switch t := v.(type) {
	case string:
		return &t
	case json.Number:
		s := t.String()
		return &s
	}
	if i, ok := Int(v); ok {
		s := strconv.FormatInt(i, 10)
		return &s
	}
	return nil
}

// FloatPtr and IntPtr are Float and Int with nil for "unavailable".
func FloatPtr(v any) *float64 {
	f, ok := Float(v)
	if !ok {
		return nil
	}
	return &f
}

func IntPtr(v any) *int {
	i, ok := Int(v)
	if !ok {
		return nil
	}
	n := int(i)
	return &n
}
