package utils

import (
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestContainsNonASCII(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{
			name:     "empty string",
			input:    "",
			expected: false,
		},
		{
			name:     "pure ASCII lowercase",
			input:    "hello world",
			expected: false,
		},
		{
			name:     "pure ASCII with numbers",
			input:    "hello123world",
			expected: false,
		},
		{
			name:     "pure ASCII with symbols",
			input:    "hello!@#$%^&*()_+-=",
			expected: false,
		},
		{
			name:     "email address",
			input:    "user@example.com",
			expected: false,
		},
		{
			name:     "ASCII with newlines",
			input:    "hello\r\nworld",
			expected: false,
		},
		{
			name:     "ASCII with tabs",
			input:    "hello\tworld",
			expected: false,
		},
		{
			name:     "single non-ASCII character",
			input:    "ä",
			expected: true,
		},
		{
			name:     "UTF-8 umlaut",
			input:    "hello wörld",
			expected: true,
		},
		{
			name:     "UTF-8 emoji",
			input:    "hello 👋",
			expected: true,
		},
		{
			name:     "Chinese characters",
			input:    "你好",
			expected: true,
		},
		{
			name:     "mixed ASCII and UTF-8",
			input:    "hello世界",
			expected: true,
		},
		{
			name:     "international email-like",
			input:    "user@exämple.com",
			expected: true,
		},
		{
			name:     "high ASCII byte string",
			input:    string([]byte{0x80}),
			expected: true,
		},
		{
			name:     "boundary ASCII (127)",
			input:    string([]byte{127}),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ContainsNonASCII(tt.input)
			if result != tt.expected {
				t.Errorf("ContainsNonASCII(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID()
	if id == "" {
		t.Fatal("GenerateID() returned empty string")
	}

	// ULIDs are 26 Crockford base32 characters
	if len(id) != ulid.EncodedSize {
		t.Errorf("GenerateID() returned string of length %d, want %d", len(id), ulid.EncodedSize)
	}

	if _, err := ulid.ParseStrict(id); err != nil {
		t.Errorf("GenerateID() returned invalid ULID %q: %v", id, err)
	}

	// Test uniqueness (generate multiple IDs and ensure they're different)
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		newID := GenerateID()
		if ids[newID] {
			t.Errorf("GenerateID() returned duplicate ID: %s", newID)
		}
		ids[newID] = true
	}
}

func TestNormalizeDomain(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "plain domain",
			input:    "example.com",
			expected: "example.com",
		},
		{
			name:     "upper case",
			input:    "Example.COM",
			expected: "example.com",
		},
		{
			name:     "trailing dot",
			input:    "example.com.",
			expected: "example.com",
		},
		{
			name:     "surrounding whitespace",
			input:    "  example.com\n",
			expected: "example.com",
		},
		{
			name:     "underscore label",
			input:    "_spf.example.com",
			expected: "_spf.example.com",
		},
		{
			name:     "internationalized",
			input:    "bücher.example",
			expected: "xn--bcher-kva.example",
		},
		{
			name:        "empty",
			input:       "",
			expectError: true,
		},
		{
			name:        "only a dot",
			input:       ".",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDomain(tt.input)
			if tt.expectError {
				if err == nil {
					t.Errorf("NormalizeDomain(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Errorf("NormalizeDomain(%q) unexpected error: %v", tt.input, err)
				return
			}
			if got != tt.expected {
				t.Errorf("NormalizeDomain(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestOrganizationalDomain(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"example.com", "example.com"},
		{"mail.example.com", "example.com"},
		{"_spf.mail.example.co.uk.", "example.co.uk"},
		{"Example.COM", "example.com"},
		{"com", "com"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := OrganizationalDomain(tt.input); got != tt.expected {
				t.Errorf("OrganizationalDomain(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
