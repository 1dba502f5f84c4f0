// Package twists holds the pure transforms applied to an active mutation
// point: twisting a literal and rendering a twisted source line.
package twists

import (
	"fmt"
	"strconv"
)

// TextPrefix is prepended to twisted text literals.
const TextPrefix = "TWISTED: "

// Literal returns the twisted form of value. Integers (runes included) and
// floats map to 2v+1, text gains TextPrefix. Other types have no twist: the value is
// returned unchanged with ok set to false.
func Literal(value any) (any, bool) {
	switch v := value.(type) {
	case int64:
		return v*2 + 1, true
	case int:
		return v*2 + 1, true
	case int32:
		return v*2 + 1, true
	case float64:
		return v*2 + 1, true
	case string:
		return TextPrefix + v, true
	default:
		return value, false
	}
}

// FormatValue spells a literal value the way it appears in source.
func FormatValue(value any) string {
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case int32:
		return strconv.QuoteRune(v)
	case float64:
		s := strconv.FormatFloat(v, 'g', -1, 64)
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			s += ".0"
		}

		return s
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%v", v)
	}
}
