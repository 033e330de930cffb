// Package tick converts between decimal price strings and integer ticks.
// All arithmetic in the engine happens on ticks; floats never appear.
package tick

import (
	"fmt"
	"strconv"
	"strings"
)

// Scale fixes the number of decimal places carried by a tick.
type Scale struct {
	Decimals int
	Factor   int64
}

// PriceScale is the scale used for order prices: two decimal places,
// so "101.25" becomes 10125 ticks.
var PriceScale = Scale{Decimals: 2, Factor: 100}

// Parse converts a decimal string like "101.25" to ticks. It rejects
// empty input, malformed numbers, and more fractional digits than the
// scale carries. Parsing goes through the integer parser so overflow
// surfaces as an error instead of wrapping.
func (s Scale) Parse(value string) (int64, error) {
	if value == "" {
		return 0, fmt.Errorf("tick: empty value")
	}

	whole, frac := value, ""
	if i := strings.IndexByte(value, '.'); i >= 0 {
		whole, frac = value[:i], value[i+1:]
		if frac == "" {
			return 0, fmt.Errorf("tick: %q has a trailing decimal point", value)
		}
	}
	if len(frac) > s.Decimals {
		return 0, fmt.Errorf("tick: %q has more than %d decimal places", value, s.Decimals)
	}
	for len(frac) < s.Decimals {
		frac += "0"
	}

	neg := false
	if whole != "" && (whole[0] == '-' || whole[0] == '+') {
		neg = whole[0] == '-'
		whole = whole[1:]
	}
	digits := whole + frac
	if digits == "" {
		return 0, fmt.Errorf("tick: %q has no digits", value)
	}
	if neg {
		digits = "-" + digits
	}

	ticks, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tick: parse %q: %w", value, err)
	}
	return ticks, nil
}

// Format renders ticks back to a decimal string: 10125 -> "101.25".
func (s Scale) Format(ticks int64) string {
	if s.Decimals == 0 {
		return strconv.FormatInt(ticks, 10)
	}
	neg := ticks < 0
	if neg {
		ticks = -ticks
	}
	whole := ticks / s.Factor
	frac := ticks % s.Factor
	out := fmt.Sprintf("%d.%0*d", whole, s.Decimals, frac)
	if neg {
		out = "-" + out
	}
	return out
}
