// Package numfmt converts between raw integers and Chinese magnitude strings
// such as "3万" or "1.2亿".
package numfmt

import (
	"math"
	"strconv"
	"strings"
)

const (
	wan = 10_000
	yi  = 100_000_000

	// int64Bound is 2^63, the first float64 past math.MaxInt64.
	int64Bound = float64(1 << 63)
)

// ParseChinese parses a decimal optionally suffixed with 万/w or 亿.
// Unparseable input, and values outside the int64 range, return 0.
func ParseChinese(s string) int64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}

	n, ok := leadingFloat(s)
	if !ok {
		return 0
	}

	switch {
	case strings.Contains(s, "万") || strings.Contains(s, "w"):
		n *= wan
	case strings.Contains(s, "亿"):
		n *= yi
	}
	n = math.Floor(n)
	if math.IsNaN(n) || n >= int64Bound || n < -int64Bound {
		return 0
	}
	return int64(n)
}

// leadingFloat reads the longest numeric prefix, allowing a sign and one dot.
func leadingFloat(s string) (float64, bool) {
	end := 0
	seenDot := false
	seenDigit := false
scan:
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
		case r == '.' && !seenDot:
			seenDot = true
		case (r == '-' || r == '+') && i == 0:
		default:
			break scan
		}
		end = i + 1
	}
	if !seenDigit {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FormatChinese collapses n into a display string with one decimal digit and
// a magnitude suffix, dropping a trailing ".0".
func FormatChinese(n int64) string {
	switch {
	case n >= yi:
		return trimZero(float64(n)/yi) + "亿"
	case n >= wan:
		return trimZero(float64(n)/wan) + "万"
	}
	return strconv.FormatInt(n, 10)
}

func trimZero(f float64) string {
	return strings.TrimSuffix(strconv.FormatFloat(f, 'f', 1, 64), ".0")
}
