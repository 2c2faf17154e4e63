package core

import (
	"math"
	"strconv"
	"time"
)

// InferType maps a Go value to the column type it would round-trip through
// SQLite as. Unknown types fall back to StringType, mirroring the TEXT
// affinity fallback in generated DDL.
func InferType(value any) ColumnType {
	switch value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return IntType
	case float32, float64:
		return FloatType
	case bool:
		return BoolType
	case time.Time:
		return TimestampType
	case []byte:
		return BlobType
	default:
		return StringType
	}
}

// Coerce converts a Go value into the representation handed to the SQLite
// driver: NaN becomes NULL, booleans become 0/1, timestamps become RFC 3339
// text, integer widths collapse to int64.
func Coerce(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(v) {
			return nil
		}
		return v
	case float32:
		if math.IsNaN(float64(v)) {
			return nil
		}
		return float64(v)
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		// Values past MaxInt64 would flip sign; store them as text, the
		// same affinity fallback unknown types get.
		if v > math.MaxInt64 {
			return strconv.FormatUint(v, 10)
		}
		return int64(v)
	default:
		return value
	}
}

// valueEqual compares two coerced values, folding the numeric representations
// the driver may hand back (int64 vs float64) into one another.
func valueEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return av == bv
		case float64:
			return float64(av) == bv
		}
	case float64:
		switch bv := b.(type) {
		case int64:
			return av == float64(bv)
		case float64:
			return av == bv
		}
	case []byte:
		bv, ok := b.([]byte)
		if !ok {
			return false
		}
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
