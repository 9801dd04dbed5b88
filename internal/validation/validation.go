// Package validation checks admin and checkout input structs using
// go-playground/validator struct tags.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Error describes the first field that failed validation.
type Error struct {
	Field string
	Rule  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("field %s failed %q validation", e.Field, e.Rule)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates s and returns *Error for the first failing field.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &Error{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
	}
	return errors.Wrap(err, "validate")
}

// NonNegative returns *Error when d is below zero.
func NonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &Error{Field: field, Rule: "gte=0"}
	}
	return nil
}
