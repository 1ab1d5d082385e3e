package utils

import "testing"

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"RELIANCE", "RELIANCE.NS"},
		{" TCS ", "TCS.NS"},
		{"$INFY", "INFY.NS"},
		{"infy", "infy.NS"},
		{"RELIANCE.NS", "RELIANCE.NS"},
		{"500325.BO", "500325.BO"},
		{"BRK.B", "BRK.B"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := NormalizeSymbol(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestBaseSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"RELIANCE.NS", "RELIANCE"},
		{"TCS.BO", "TCS"},
		{"INFY", "INFY"},
	}
	for _, tt := range tests {
		if got := BaseSymbol(tt.input); got != tt.expected {
			t.Errorf("BaseSymbol(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestExchange(t *testing.T) {
	if got := Exchange("TCS.NS"); got != "NSE" {
		t.Errorf("Exchange(TCS.NS) = %q", got)
	}
	if got := Exchange("TCS.BO"); got != "BSE" {
		t.Errorf("Exchange(TCS.BO) = %q", got)
	}
	if got := Exchange("AAPL"); got != "" {
		t.Errorf("Exchange(AAPL) = %q", got)
	}
}
