package normalize

import "testing"

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@example.com", "user@example.com"},
		{"USER@EXAMPLE.COM", "user@example.com"},
		{"  User@Example.Com  ", "user@example.com"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Email(tt.input); got != tt.want {
				t.Errorf("Email(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNameCI(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Alpha", "alpha"},
		{"  ALPHA ", "alpha"},
		{"Alpha Beta", "alpha beta"},
		{"Café", "cafe"},
		{"CAFE", "cafe"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NameCI(tt.input); got != tt.want {
				t.Errorf("NameCI(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLocalPart(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"user@mailinator.com", "user"},
		{"a.b@x.org", "a.b"},
		{"noat", "noat"},
	}

	for _, tt := range tests {
		if got := LocalPart(tt.input); got != tt.want {
			t.Errorf("LocalPart(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
