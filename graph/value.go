package graph

import (
	"reflect"

	"github.com/spf13/cast"
)

// Truthy reports whether a handle value counts as true when gating a node or
// picking the first non-empty combine input. nil, false, zero numbers, empty
// strings and empty collections are falsy; everything else is truthy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []string:
		return len(x) > 0
	case []Document:
		return len(x) > 0
	case []Reference:
		return len(x) > 0
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return cast.ToFloat64(x) != 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
