package billsplit

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var decimalPattern = regexp.MustCompile(`\d+\.?\d*`)

// ParsePrice extracts a numeric amount from a menu price string. It never
// fails: anything unparsable yields 0.
//
// When both separators appear, the first one is the thousands separator
// ("1,234.00" and "1.234,50"). A lone comma is a decimal comma ("15,50").
// A separator that repeats is always a thousands separator ("1,234,567").
func ParsePrice(value string) float64 {
	var b strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	clean := b.String()
	if clean == "" {
		return 0
	}

	comma := strings.Index(clean, ",")
	dot := strings.Index(clean, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma < dot {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case comma >= 0:
		if strings.Count(clean, ",") > 1 {
			clean = strings.ReplaceAll(clean, ",", "")
		} else {
			clean = strings.Replace(clean, ",", ".", 1)
		}
	case dot >= 0 && strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	match := decimalPattern.FindString(clean)
	if match == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(match, 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}
