// Package constraint checks entity field rules declared as struct tags before
// they reach a store. The same rules are mirrored by CHECK constraints in the
// schemas, so a violation is reported the same way whichever side catches it.
package constraint

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrViolation is the root of every field rule failure.
var ErrViolation = errors.New("constraint violation")

var (
	postalCodePattern = regexp.MustCompile(`^.{3} .{3}$`)
	emailPattern      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	cardNumberPattern = regexp.MustCompile(`^\d{4} \d{4} \d{4} \d{4}$`)
	cvvPattern        = regexp.MustCompile(`^\d{3}$`)
)

// Error lists the fields that failed and the tag each one failed on.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, tag := range e.Fields {
		parts = append(parts, field+" ("+tag+")")
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

func (e *Error) Is(target error) bool {
	return target == ErrViolation
}

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			if name, _, _ := strings.Cut(f.Tag.Get("db"), ","); name != "" && name != "-" {
				return name
			}
			return f.Name
		})
		v.RegisterCustomTypeFunc(func(f reflect.Value) any {
			if d, ok := f.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
		mustRegister(v, "postal_code", postalCodePattern)
		mustRegister(v, "email_shape", emailPattern)
		mustRegister(v, "card_number", cardNumberPattern)
		mustRegister(v, "cvv", cvvPattern)
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

// Check validates v against its `validate` struct tags. A failure is an
// *Error matching ErrViolation.
func Check(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validate")
	}
	out := &Error{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = fe.Tag()
	}
	return out
}

// PostalCode reports whether s has the "XXX XXX" shape.
func PostalCode(s string) bool { return postalCodePattern.MatchString(s) }

// Email reports whether s has the "text@text.text" shape.
func Email(s string) bool { return emailPattern.MatchString(s) }
