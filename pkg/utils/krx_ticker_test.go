package utils

import "testing"

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"005930", "005930"},
		{" 005930 ", "005930"},
		{"A005930", "005930"},
		{"005930.KS", "005930"},
		{"035420.kq", "035420"},
		{"5930", "005930"},
		{"$000660", "000660"},
		{"삼성전자", "005930"},
		{"kakao", "035720"},
		{"UNKNOWN", "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeTicker(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTicker(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsValidTicker(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"005930", true},
		{"00088K", true},
		{"5930", false},
		{"ABCDEF", false},
		{"0059301", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidTicker(tt.input); got != tt.want {
			t.Errorf("IsValidTicker(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
