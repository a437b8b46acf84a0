package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New creates a validator instance with the custom tags used by request DTOs.
func New() *validator.Validate {
	v := validator.New()

	// Report fields by their query/json name so messages match what the client sent.
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(sf.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return sf.Name
	})

	// "timestamp" accepts anything ParseTimestamp accepts.
	_ = v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return true
		}
		_, _, err := ParseTimestamp(str)
		return err == nil
	})

	return v
}

// FormatQueryError converts validator errors on a query DTO into a client message.
func FormatQueryError(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			switch fe.Tag() {
			case "timestamp":
				return "Invalid date format for " + fe.Field() + "; expected YYYY-MM-DD or ISO-8601"
			case "oneof":
				return "invalid value for " + fe.Field() + ": must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
			case "max":
				return fe.Field() + " exceeds maximum length of " + fe.Param()
			default:
				return fe.Field() + " is invalid"
			}
		}
	}
	return "invalid query"
}
