package numfmt

import "testing"

func TestParseChinese(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"3万", 30000},
		{"1.5万", 15000},
		{"2亿", 200000000},
		{"", 0},
		{"abc", 0},
		{"  12  ", 12},
		{"3w", 30000},
		{"3W", 30000},
		{"99.9", 99},
		{"1.23456万", 12345},
		{"万", 0},
		{"-2", -2},
		{"99999999999999999999", 0},
		{"99999999999999亿", 0},
		{"-99999999999999999999", 0},
		{"9223372036854775807", 0},
		{"92233720368万", 922337203680000},
	}

	for _, tt := range tests {
		if got := ParseChinese(tt.in); got != tt.want {
			t.Errorf("ParseChinese(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatChinese(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{30000, "3万"},
		{15000, "1.5万"},
		{500, "500"},
		{0, "0"},
		{9999, "9999"},
		{200000000, "2亿"},
		{123456789, "1.2亿"},
		{25000, "2.5万"},
	}

	for _, tt := range tests {
		if got := FormatChinese(tt.in); got != tt.want {
			t.Errorf("FormatChinese(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
