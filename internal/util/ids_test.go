package util

import (
	"testing"
)

func TestNewID(t *testing.T) {
	id, err := NewID()
	if err != nil {
		t.Fatalf("NewID() error = %v", err)
	}
	if !IsID(id) {
		t.Fatalf("IsID(%q) = false, want true", id)
	}
}

func TestIsID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"Valid21Chars", "sGvgBXbBcVCjBIKCLS2Os", true},
		{"TooShort", "abc123", false},
		{"TooLong", "sGvgBXbBcVCjBIKCLS2OsX", false},
		{"WithSpace", "sGvgBXbBcVCjBIKCL 2Os", false},
		{"AllDashes", "---------------------", true},
		{"Empty", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsID(tc.in); got != tc.want {
				t.Fatalf("IsID(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeBold(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"Canonical", "**Bob Jones** and **Mary Smith**", "**Bob Jones** and **Mary Smith**"},
		{"Padded", "** Bob Jones ** and **Mary Smith **", "**Bob Jones** and **Mary Smith**"},
		{"Underscores", "__Bob Jones__ met **Mary**", "**Bob Jones** met **Mary**"},
		{"AdjacentDuplicate", "**Bob** **Bob** and **Mary**", "**Bob** and **Mary**"},
		{"SeparatedRepeat", "**Bob** and **Bob**", "**Bob** and **Bob**"},
		{"NoMarkup", "plain text", "plain text"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeBold(tc.in); got != tc.want {
				t.Fatalf("NormalizeBold(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
