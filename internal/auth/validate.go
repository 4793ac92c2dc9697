package auth

import (
	"net/mail"
	"unicode/utf8"
)

const (
	MinNameLength     = 2
	MinPasswordLength = 8

	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every field problem found in a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return e.Fields[0].Field + ": " + e.Fields[0].Message
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// ValidEmail reports whether s parses as a bare email address.
func ValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// SignupInput is the normalized form of a password signup request.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// ValidateSignup checks a password signup. ConfirmPassword is only compared when set.
func ValidateSignup(in SignupInput) error {
	verr := &ValidationError{}
	if utf8.RuneCountInString(in.Name) < MinNameLength {
		verr.add("name", "Name must be at least 2 characters.")
	}
	if !ValidEmail(in.Email) {
		verr.add("email", "Invalid email address.")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		verr.add("password", "Password must be at least 8 characters.")
	} else if len(in.Password) > MaxPasswordBytes {
		verr.add("password", "Password must be at most 72 bytes.")
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.Password {
		verr.add("confirm_password", "Passwords don't match.")
	}
	return verr.orNil()
}

// ValidateFaceSignup checks the identity fields of a face signup; the descriptor is validated separately.
func ValidateFaceSignup(name, email string) error {
	verr := &ValidationError{}
	if utf8.RuneCountInString(name) < MinNameLength {
		verr.add("name", "Name must be at least 2 characters.")
	}
	if !ValidEmail(email) {
		verr.add("email", "Invalid email address.")
	}
	return verr.orNil()
}
