package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// ErrorInfo pairs a code with a message safe to show to the client.
type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError maps persistence errors onto client-safe codes. context names
// the resource being handled ("user", "product", "lead").
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{Code: InternalServerError, Message: "Something went wrong."}
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{Code: notFoundCode(context), Message: "Not found."}
	}

	lower := strings.ToLower(err.Error())

	// Postgres 23505 and the sqlite equivalent.
	if strings.Contains(lower, "duplicate key") || strings.Contains(lower, "unique constraint") {
		if strings.Contains(lower, "email") {
			return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "A user with this email already exists."}
		}
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists."}
	}

	// Postgres 23503.
	if strings.Contains(lower, "foreign key constraint") {
		if strings.Contains(lower, "still referenced") {
			return ErrorInfo{Code: ResourceConflict, Message: fmt.Sprintf("This %s is still referenced by other records.", contextOr(context, "record"))}
		}
		return ErrorInfo{Code: ResourceNotFound, Message: "A referenced record does not exist."}
	}

	if strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "timeout") {
		return ErrorInfo{Code: InternalExternalAPI, Message: "A downstream service is unavailable. Please try again later."}
	}

	return ErrorInfo{Code: InternalDatabase, Message: "Something went wrong. Please try again later."}
}

func notFoundCode(context string) string {
	switch context {
	case "user":
		return UserNotFound
	case "lead":
		return LeadNotFound
	case "product":
		return ProductNotFound
	default:
		return ResourceNotFound
	}
}

func contextOr(context, fallback string) string {
	if context == "" {
		return fallback
	}
	return context
}

// ValidationFields flattens validator errors into json-field -> message.
// It returns nil for errors that did not come from the validator.
func ValidationFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fieldName(fe)] = fieldMessage(fe)
	}
	return fields
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "non_field_errors"
	}
	return toSnake(name)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "len":
		return fmt.Sprintf("Ensure this field has exactly %s characters.", fe.Param())
	case "numeric":
		return "This field must contain digits only."
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "oneof", "role", "signup_role", "approval_status", "lead_status":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	default:
		return "Invalid value."
	}
}

// toSnake converts Go field names (FirstName) to the JSON keys clients
// send (first_name).
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
