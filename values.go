package plasm

import "math"

// number matches json.Number without tying callers to a particular JSON package.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// Truthy reports whether v counts as a present value under PresenceTruthy:
// nil, false, zero numbers, NaN and the empty string are falsy, everything else
// (including empty maps and slices) is truthy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int:
		return t != 0
	case int8:
		return t != 0
	case int16:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case uint:
		return t != 0
	case uint8:
		return t != 0
	case uint16:
		return t != 0
	case uint32:
		return t != 0
	case uint64:
		return t != 0
	case float32:
		return t != 0 && !math.IsNaN(float64(t))
	case float64:
		return t != 0 && !math.IsNaN(t)
	case number:
		f, err := t.Float64()
		return err == nil && f != 0 && !math.IsNaN(f)
	default:
		return true
	}
}

// IsInteger accepts integral numbers only: 13 and 13.0 pass, 14.55, "13",
// true and non-numeric values fail.
func IsInteger(v any) bool {
	_, ok := AsInt64(v)
	return ok
}

// IsString accepts Go strings only.
func IsString(v any) bool {
	_, ok := v.(string)
	return ok
}

// AsInt64 converts an integral numeric value to int64.
func AsInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return uintToInt64(uint64(t))
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		return uintToInt64(t)
	case float32:
		return floatToInt64(float64(t))
	case float64:
		return floatToInt64(t)
	case number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt64(f)
	default:
		return 0, false
	}
}

func uintToInt64(u uint64) (int64, bool) {
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
