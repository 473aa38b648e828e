// Package extract pulls typed values out of loosely shaped provider JSON.
//
// Each field is read through an ordered chain of extractors; the first one that
// yields a value wins. Providers name the same field differently across
// endpoints and versions, so chains keep every fallback explicit and testable.
package extract

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a decoded JSON object
type Record map[string]any

// Extractor returns a value and whether it was present.
type Extractor[T any] func(Record) (T, bool)

// First runs the chain in order and returns the first present value.
func First[T any](r Record, chain ...Extractor[T]) (T, bool) {
	for _, ex := range chain {
		if v, ok := ex(r); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Ptr is First returning nil when nothing matched.
func Ptr[T any](r Record, chain ...Extractor[T]) *T {
	if v, ok := First(r, chain...); ok {
		return &v
	}
	return nil
}

// Decode unmarshals a JSON object, keeping numbers as json.Number.
func Decode(data []byte) (Record, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var r Record
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup walks nested objects. Numeric path segments index into arrays.
func Lookup(r Record, path ...string) (any, bool) {
	var cur any = map[string]any(r)
	for _, key := range path {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case Record:
			v, ok := node[key]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// Object returns the nested object at path.
func Object(r Record, path ...string) (Record, bool) {
	v, ok := Lookup(r, path...)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(m), true
}

// Objects returns the nested array at path, keeping only object elements.
func Objects(r Record, path ...string) []Record {
	v, ok := Lookup(r, path...)
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// String reads a non-blank string. Numbers are rendered as text.
func String(path ...string) Extractor[string] {
	return func(r Record) (string, bool) {
		v, ok := Lookup(r, path...)
		if !ok {
			return "", false
		}
		var s string
		switch x := v.(type) {
		case string:
			s = x
		case json.Number:
			s = x.String()
		case float64:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			return "", false
		}
		s = strings.TrimSpace(s)
		return s, s != ""
	}
}

// Float reads a number or a numeric string ("1,250.5" and "$300" included).
func Float(path ...string) Extractor[float64] {
	return func(r Record) (float64, bool) {
		v, ok := Lookup(r, path...)
		if !ok {
			return 0, false
		}
		return toFloat(v)
	}
}

// PositiveFloat is Float ignoring zero and negative values.
func PositiveFloat(path ...string) Extractor[float64] {
	inner := Float(path...)
	return func(r Record) (float64, bool) {
		f, ok := inner(r)
		return f, ok && f > 0
	}
}

// Int reads a whole number; fractional values are truncated.
func Int(path ...string) Extractor[int] {
	inner := Float(path...)
	return func(r Record) (int, bool) {
		f, ok := inner(r)
		if !ok {
			return 0, false
		}
		return int(f), true
	}
}

// Int64 reads a whole number as int64.
func Int64(path ...string) Extractor[int64] {
	inner := Float(path...)
	return func(r Record) (int64, bool) {
		f, ok := inner(r)
		if !ok {
			return 0, false
		}
		return int64(f), true
	}
}

// Map adapts an extractor with a conversion that may reject the value.
func Map[T, U any](ex Extractor[T], fn func(T) (U, bool)) Extractor[U] {
	return func(r Record) (U, bool) {
		v, ok := ex(r)
		if !ok {
			var zero U
			return zero, false
		}
		return fn(v)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		clean := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, x)
		if clean == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(clean, 64)
		return f, err == nil
	}
	return 0, false
}
