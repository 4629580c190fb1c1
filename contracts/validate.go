package contracts

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/lease-receivables/billing"
)

// moneyPlaces is the scale of every stored amount column.
const moneyPlaces = 2

// isMoney reports whether d is a non-negative amount the NUMERIC(14,2)
// columns store without rounding.
func isMoney(d decimal.Decimal) bool {
	return !d.IsNegative() && d.Equal(d.Round(moneyPlaces))
}

// newValidator checks the struct tags on contracts and directory entries.
// Decimals use the money tag and dates are compared by their underlying
// time; field names in errors are the column names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
		d, ok := fl.Field().Interface().(decimal.Decimal)
		return ok && isMoney(d)
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(billing.Date); ok {
			return d.Time
		}
		return nil
	}, billing.Date{})

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("db"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	return v
}

// checkStruct runs the validator and reports the first failing field as a
// billing.InvalidArgumentError.
func (s *Service) checkStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &billing.InvalidArgumentError{
			Field:  fe.Field(),
			Value:  fe.Value(),
			Reason: reason(fe),
		}
	}
	return &billing.InvalidArgumentError{Field: "contract", Value: nil, Reason: err.Error()}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "money":
		return "must be non-negative with at most 2 decimal places"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be an email address"
	}
	return "failed " + fe.Tag()
}
