package errors

import (
	"strings"
	"testing"
)

func TestValidateSource(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		max     int
		wantErr bool
	}{
		{"valid", "network A { }", 0, false},
		{"within limit", "network A { }", 100, false},
		{"unicode", "# Netz für Ziffern\nnetwork A { }", 0, false},

		{"empty", "", 0, true},
		{"whitespace only", " \n\t", 0, true},
		{"too large", strings.Repeat("x", 101), 100, true},
		{"invalid utf8", "network \xff { }", 0, true},
		{"null byte", "network A {\x00}", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSource(tt.input, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSource(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("code = %v, want %v", GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateNetworkName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty selects first", "", false},
		{"simple", "MNIST", false},
		{"underscore", "_resnet_50", false},

		{"leading digit", "50layers", true},
		{"dash", "res-net", true},
		{"space", "my net", true},
		{"too long", strings.Repeat("a", 129), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNetworkName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNetworkName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"simple", "mnist.nn", false},

		{"path", "models/mnist.nn", true},
		{"backslash", "models\\mnist.nn", true},
		{"hidden", ".secret", true},
		{"parent", "..", true},
		{"control char", "a\x01b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "out/mnist.svg", false},
		{"nested", "a/b/c.dot", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "../secret", true},
		{"backslash", "out\\x.svg", true},
		{"null byte", "a\x00b", true},
		{"too long", strings.Repeat("a", 501), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
