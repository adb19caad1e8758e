// Package validation collects field-level violations for request input.
package validation

import (
	"net/mail"
	"strings"

	"github.com/shopspring/decimal"

	"stockmaster/infrastructure/apperr"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Err returns a validation error carrying the violations, or nil.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return apperr.Validation("validation failed", map[string]string(v))
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MaxLen(field, value string, max int, v Violations) {
	if len(value) > max {
		v[field] = "too_long"
	}
}

func NonNegativeInt(field string, val int64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func PositiveInt(field string, val int64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v[field] = "must_not_be_negative"
	}
}

func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value == "" {
		v[field] = "required"
		return
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v[field] = "invalid_email"
	}
}

// OptionalEmail accepts an empty value.
func OptionalEmail(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		return
	}
	Email(field, value, v)
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if a == value {
			return
		}
	}
	v[field] = "invalid_value"
}
