// Package registry implements the backend registry (C6): the
// immutable table of named stdio backends loaded at startup, and the
// per-backend instantiation of a fresh child process for each
// incoming session.
package registry

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/relaymcp/relaymcp/internal/mcperr"
)

// Backend is a named stdio command this proxy can spawn on demand.
// Names are unique per-proxy and URL-safe; they become the
// "/servers/<name>/" route prefix.
type Backend struct {
	Name    string `validate:"required,url_safe_name"`
	Command string `validate:"required"`
	Args    []string
	Env     []string // nil means inherit os.Environ() unmodified
	Dir     string
	Enabled bool
}

var nameValidator = newNameValidator()

func newNameValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("url_safe_name", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return false
		}
		for _, r := range s {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			default:
				return false
			}
		}
		return true
	})
	return v
}

// ValidateName reports whether name is a usable backend name: non-empty
// and safe to place unescaped into a "/servers/<name>/" URL path
// segment.
func ValidateName(name string) error {
	if err := nameValidator.Var(name, "required,url_safe_name"); err != nil {
		return mcperr.New(mcperr.ConfigInvalid, fmt.Sprintf("backend name %q", name), err)
	}
	return nil
}
