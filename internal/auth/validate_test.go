package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"alice@example.com", true},
		{"a.b+tag@sub.example.org", true},
		{"", false},
		{"not-an-email", false},
		{"Alice <alice@example.com>", false},
		{"@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidEmail(tt.input); got != tt.valid {
				t.Errorf("ValidEmail(%q) = %v, want %v", tt.input, got, tt.valid)
			}
		})
	}
}

func TestValidateSignup(t *testing.T) {
	tests := []struct {
		name       string
		input      SignupInput
		wantFields []string
	}{
		{
			name:  "valid",
			input: SignupInput{Name: "Alice", Email: "alice@example.com", Password: "password123"},
		},
		{
			name:  "valid with matching confirmation",
			input: SignupInput{Name: "Alice", Email: "alice@example.com", Password: "password123", ConfirmPassword: "password123"},
		},
		{
			name:       "short name",
			input:      SignupInput{Name: "A", Email: "alice@example.com", Password: "password123"},
			wantFields: []string{"name"},
		},
		{
			name:       "bad email and short password",
			input:      SignupInput{Name: "Alice", Email: "nope", Password: "short"},
			wantFields: []string{"email", "password"},
		},
		{
			name:       "password longer than bcrypt accepts",
			input:      SignupInput{Name: "Alice", Email: "alice@example.com", Password: strings.Repeat("é", 40)},
			wantFields: []string{"password"},
		},
		{
			name:  "password of exactly 72 bytes",
			input: SignupInput{Name: "Alice", Email: "alice@example.com", Password: strings.Repeat("x", MaxPasswordBytes)},
		},
		{
			name:       "confirmation mismatch",
			input:      SignupInput{Name: "Alice", Email: "alice@example.com", Password: "password123", ConfirmPassword: "password124"},
			wantFields: []string{"confirm_password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSignup(tt.input)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("ValidateSignup() error = %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(verr.Fields) != len(tt.wantFields) {
				t.Fatalf("fields = %v, want %v", verr.Fields, tt.wantFields)
			}
			for i, f := range tt.wantFields {
				if verr.Fields[i].Field != f {
					t.Errorf("field[%d] = %s, want %s", i, verr.Fields[i].Field, f)
				}
			}
		})
	}
}

func TestValidateFaceSignup(t *testing.T) {
	if err := ValidateFaceSignup("Bob", "bob@example.com"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateFaceSignup("", "bob@example.com"); err == nil {
		t.Error("expected error for empty name")
	}
}
