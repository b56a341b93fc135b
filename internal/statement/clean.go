package statement

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// placeholders are cell texts that mean "no data".
var placeholders = map[string]struct{}{
	"":     {},
	".":    {},
	"-":    {},
	"—":    {},
	"–":    {},
	"N/A":  {},
	"완전잠식": {}, // full capital impairment
}

var (
	numberPattern = regexp.MustCompile(`[-+]?(?:\d+(?:\.\d+)?|\.\d+)`)

	// parenthesized matches an accounting negative such as "(1,234)".
	parenthesized = regexp.MustCompile(`^\((.*)\)$`)

	// normalizer drops thousands separators and maps the unicode and
	// full-width minus signs to ASCII.
	normalizer = strings.NewReplacer(",", "", "\u2212", "-", "\uff0d", "-")
)

// IsPlaceholder reports whether text is one of the recognized "no data" tokens.
// Annotated forms such as "N/A(IFRS)" count as N/A.
func IsPlaceholder(text string) bool {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "N/A") {
		return true
	}
	_, ok := placeholders[text]
	return ok
}

// ParseNumber extracts the first signed decimal number from a cell.
// Thousands separators are ignored and a cell wrapped in parentheses is
// negative. ok is false for placeholder tokens and
// for texts that carry no number at all.
func ParseNumber(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if IsPlaceholder(text) {
		return 0, false
	}

	text = normalizer.Replace(text)
	negative := false
	if m := parenthesized.FindStringSubmatch(text); m != nil {
		text, negative = strings.TrimSpace(m[1]), true
	}

	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -math.Abs(v)
	}
	return v, true
}

// Clean converts a cell to a number. It is total: placeholders, texts without
// a number and anything unparseable all yield 0.
func Clean(text string) float64 {
	v, _ := ParseNumber(text)
	return v
}
