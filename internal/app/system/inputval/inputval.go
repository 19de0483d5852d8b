// Package inputval wraps go-playground/validator with the custom rules this
// application needs on request payloads: mobile phone numbers, gender
// values, and plausible birth years.
package inputval

import (
	"regexp"

	"github.com/anketolabs/anketo/internal/domain/models"
	"github.com/go-playground/validator/v10"
)

// mobileRe accepts an optional leading +, then 10 to 14 digits, first digit
// nonzero. Whitespace must already be stripped (normalize.Phone).
var mobileRe = regexp.MustCompile(`^\+?[1-9][0-9]{9,13}$`)

// Validator validates request payload structs. Safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

// New builds a Validator with the custom rules registered:
//   - "mobile":     a plausible mobile phone number
//   - "gender":     one of the canonical gender values
//   - "birth_year": integer within the accepted range
func New() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("mobile", func(fl validator.FieldLevel) bool {
		return IsMobile(fl.Field().String())
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		return models.IsValidGender(fl.Field().String())
	})
	_ = v.RegisterValidation("birth_year", func(fl validator.FieldLevel) bool {
		return IsBirthYear(int(fl.Field().Int()))
	})

	return &Validator{v: v}
}

// Struct validates a payload struct against its `validate` tags.
func (val *Validator) Struct(s any) error {
	return val.v.Struct(s)
}

// IsMobile reports whether s looks like a mobile phone number. The input
// must already have whitespace stripped.
func IsMobile(s string) bool {
	return mobileRe.MatchString(s)
}

// IsBirthYear reports whether y falls in the accepted range (inclusive).
func IsBirthYear(y int) bool {
	return y >= models.BirthYearMin && y <= models.BirthYearMax
}
