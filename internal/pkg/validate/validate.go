package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) error {
	if err := v.Var(s, "required,email"); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// Phone reports whether s is a valid E.164 phone number (e.g. +15551234567).
func Phone(s string) error {
	if err := v.Var(s, "required,e164"); err != nil {
		return fmt.Errorf("invalid phone number")
	}
	return nil
}
