package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotANumber is returned by ParseNumber for text that is not a decimal number
var ErrNotANumber = errors.New("not a number")

// ParseNumber parses a cell as a decimal floating-point number.
//
// It accepts what a spreadsheet export or a Python float() accepts: an
// optional sign, digits with an optional fraction and exponent, "inf",
// "infinity" and "nan" in any case, and single underscores between digits.
// Magnitudes beyond float64 become ±Inf (or 0) rather than failing. Hexadecimal
// forms are rejected. Surrounding whitespace is not trimmed.
func ParseNumber(s string) (float64, error) {
	unsigned := strings.TrimLeft(s, "+-")
	if len(s)-len(unsigned) > 1 {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	if len(unsigned) > 1 && unsigned[0] == '0' && (unsigned[1] == 'x' || unsigned[1] == 'X') {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}

	if strings.Contains(s, "_") {
		if !digitSeparated(s) {
			return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
		}
		s = strings.ReplaceAll(s, "_", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return f, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	return f, nil
}

// digitSeparated reports whether every underscore in s sits between two digits
func digitSeparated(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != '_' {
			continue
		}
		if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
