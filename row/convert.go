package row

import (
	"encoding/json"
	"math"
	"strconv"
	"unicode/utf8"
)

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x)
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, ErrTypeMismatch
		}
		return floatToInt64(f)
	default:
		return 0, ErrTypeMismatch
	}
}

func uintToInt64(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, ErrOutOfRange
	}
	return int64(u), nil
}

// floatToInt64 accepts integral floats, which is how JSON numbers decode.
func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, ErrTypeMismatch
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, ErrOutOfRange
	}
	return int64(f), nil
}

// toFloat64 rejects NaN and infinities, which have no JSON encoding.
func toFloat64(v any) (float64, error) {
	f, err := anyToFloat64(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, ErrTypeMismatch
	}
	if math.IsInf(f, 0) {
		return 0, ErrOutOfRange
	}
	return f, nil
}

func anyToFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return 0, ErrTypeMismatch
		}
		return f, nil
	default:
		return 0, ErrTypeMismatch
	}
}

// toString accepts valid UTF-8 only; snapshots are JSON text.
func toString(v any) (string, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case []byte:
		s = string(x)
	default:
		return "", ErrTypeMismatch
	}
	if !utf8.ValidString(s) {
		return "", ErrTypeMismatch
	}
	return s, nil
}
