package rules

import (
	"errors"
	"math"
	"testing"
)

func TestParseNumber(t *testing.T) {
	testCases := []struct {
		in   string
		want float64
	}{
		{"150", 150},
		{"-2.5", -2.5},
		{"+7", 7},
		{".5", 0.5},
		{"1e3", 1000},
		{"1E-2", 0.01},
		{"1_000", 1000},
		{"1_000.000_1", 1000.0001},
		{"1e400", math.Inf(1)},
		{"-1e400", math.Inf(-1)},
		{"1e-400", 0},
		{"inf", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
	}

	for _, tc := range testCases {
		got, err := ParseNumber(tc.in)
		if err != nil {
			t.Errorf("ParseNumber(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if got, err := ParseNumber("NaN"); err != nil || !math.IsNaN(got) {
		t.Errorf("ParseNumber(NaN) = %v, %v, want NaN", got, err)
	}
}

func TestParseNumberRejects(t *testing.T) {
	for _, in := range []string{
		"", "abc", "12abc", "1,000", " 5",
		"0x1p4", "-0x10p0", "0X1P4",
		"_1", "1_", "1__0", "1_.5", "1._5",
		"++5", "+-5",
	} {
		if got, err := ParseNumber(in); !errors.Is(err, ErrNotANumber) {
			t.Errorf("ParseNumber(%q) = %v, %v, want ErrNotANumber", in, got, err)
		}
	}
}
