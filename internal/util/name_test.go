package util

import "testing"

func TestNormalizeTagName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		// Whitespace handling
		{"already normalized", "Travel", "Travel"},
		{"trim whitespace", "  Travel  ", "Travel"},
		{"multiple spaces", "Road   Trip", "Road Trip"},
		{"tabs and newlines", "Road\t\nTrip", "Road Trip"},

		// Case and punctuation are kept
		{"case preserved", "WORK", "WORK"},
		{"punctuation kept", "Mom's B-day!", "Mom's B-day!"},
		{"emoji kept", "🏖 Beach", "🏖 Beach"},

		// Unicode
		{"decomposed accent composed", "Cafe\u0301", "Caf\u00e9"},
		{"control chars dropped", "Wo\x00rk", "Work"},

		// Edge cases
		{"empty string", "", ""},
		{"only spaces", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeTagName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeTagName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSameTagName(t *testing.T) {
	if !SameTagName(" Cafe\u0301", "Caf\u00e9 ") {
		t.Error("expected composed and decomposed names to match")
	}
	if SameTagName("Work", "work") {
		t.Error("expected names differing in case not to match")
	}
}
