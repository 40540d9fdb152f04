// Package validation wraps go-playground/validator so failures come back as
// field-level DomainErrors keyed by JSON field names.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/garage-service/pkg/util/errorutil"
)

// Validator validates structs tagged with `validate:"..."`.
type Validator struct {
	v *validator.Validate
}

// New returns a validator reporting fields by their json names.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Fields validates s and returns the offending fields mapped to the failed rule,
// or nil when s is valid.
func (val *Validator) Fields(s any) (map[string]string, error) {
	err := val.v.Struct(s)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = fe.Tag()
	}
	return fields, nil
}

// Struct validates s, returning a VALIDATION_FAILED DomainError listing bad fields.
func (val *Validator) Struct(message string, s any) error {
	fields, err := val.Fields(s)
	if err != nil {
		return apperrors.NewValidationError(message, map[string]any{"reason": err.Error()})
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError(message, fields)
	}
	return nil
}

// fieldPath drops the root struct name from the namespace: "Input.items[0].price" -> "items[0].price".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
