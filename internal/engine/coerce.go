package engine

import (
	"fmt"
	"strconv"
)

// CoerceBool reduces a raw flag value to a boolean. A nil value yields the
// caller's default; non-nil values follow truthiness (empty string, zero
// number and false are falsy).
func CoerceBool(v Value, def bool) bool {
	switch t := v.(type) {
	case nil:
		return def
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	default:
		return def
	}
}

// CoerceString reduces a raw flag value to a string. A nil value yields the
// caller's default.
func CoerceString(v Value, def string) string {
	switch t := v.(type) {
	case nil:
		return def
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// equalAsStrings compares a request attribute against an expected document
// value under string equality after coercion.
func equalAsStrings(attr string, expected Value) bool {
	return attr == CoerceString(expected, "")
}
