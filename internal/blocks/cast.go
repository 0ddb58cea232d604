package blocks

import (
	"math"
	"strconv"
	"strings"
)

// ToNumber casts a host argument to a number. Numeric strings parse, booleans
// map to 1 and 0, and anything unparseable (including NaN) becomes 0.
func ToNumber(v any) float64 {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case int32:
		n = float64(x)
	case uint:
		n = float64(x)
	case uint64:
		n = float64(x)
	case bool:
		if x {
			n = 1
		}
	case string:
		n = parseNumber(x)
	default:
		return 0
	}
	if math.IsNaN(n) {
		return 0
	}
	return n
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	// 0x1f, 0o17, 0b101
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return float64(i)
	}
	return 0
}

// ToString casts a host argument to a string for menu lookups.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	default:
		return strconv.FormatFloat(ToNumber(x), 'f', -1, 64)
	}
}

// ToIndex casts a host argument to a 1-based finger index. Fractional and
// infinite values do not address any finger.
func ToIndex(v any) (int, bool) {
	n := ToNumber(v)
	if math.IsInf(n, 0) || n != math.Trunc(n) {
		return 0, false
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}
