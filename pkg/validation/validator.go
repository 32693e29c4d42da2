package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Validates decimal.Decimal fields as numbers.
// - Registers alias tags for common validations.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Configure(v)
	}
}

// Configure applies the project's tag name function, custom types and aliases to v.
func Configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	// Aliases for common semantics
	v.RegisterAlias("pwd", "min=8")   // password minimum length
	v.RegisterAlias("qty", "gte=1")   // cart and order quantities
	v.RegisterAlias("money", "gte=0") // prices, validated through the decimal type func
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return map[string]string{ute.Field: "must be a " + ute.Type.String()}
	}
	if errors.As(err, &se) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return map[string]string{"payload": "invalid json"}
	}

	// Validation errors from validator.v10
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fieldPath(fe)] = formatFieldError(fe)
		}
		return out
	}

	// Fallback
	return map[string]string{"payload": "invalid payload"}
}

// fieldPath drops the root struct name: "createOrderRequest.shippingAddress.city" -> "shippingAddress.city".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()
	kind := fe.Kind()

	switch tag {
	// ===== PRESENCE =====
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + param + " is not present"

	// ===== ALIASES =====
	case "pwd":
		return "must be at least 8 characters long"
	case "qty":
		return "must be at least 1"
	case "money":
		return "must be a non-negative amount"

	// ===== FORMAT =====
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")

	// ===== LENGTH / RANGE =====
	case "len":
		if kind == reflect.String {
			return fmt.Sprintf("must be exactly %s characters long", param)
		}
		return "must contain exactly " + param + " items"
	case "min":
		switch kind {
		case reflect.String:
			return "must be at least " + param + " characters long"
		case reflect.Slice, reflect.Array, reflect.Map:
			return "must contain at least " + param + " items"
		}
		return "must be at least " + param
	case "max":
		switch kind {
		case reflect.String:
			return "must be at most " + param + " characters long"
		case reflect.Slice, reflect.Array, reflect.Map:
			return "must contain at most " + param + " items"
		}
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lt":
		return "must be less than " + param
	case "lte":
		return "must be less than or equal to " + param
	}

	if param != "" {
		return fmt.Sprintf("failed on %s=%s", tag, param)
	}
	return "failed on " + tag
}
