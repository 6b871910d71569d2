package survey

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Messages reported for native constraint violations, one at a time per field.
const (
	MessageValueMissing = "Please fill out this field."
	MessageTypeMismatch = "Please enter an email address."
	MessagePattern      = "Please match the requested format."
	messageTooLong      = "Please shorten this text to %d characters or fewer."
)

var (
	// Use a singleton validator instance to avoid recreating it.
	validatorInstance *validator.Validate
	validatorOnce     sync.Once
)

func getValidator() *validator.Validate {
	validatorOnce.Do(func() {
		validatorInstance = validator.New()
	})
	return validatorInstance
}

// checkField returns the validation message of value against the declared constraints of f, or "" when valid.
//
// A custom validity message wins over the native checks. An empty optional value satisfies type, pattern and length
// constraints.
func checkField(f Field, value, customValidity string) string {
	if customValidity != "" {
		return customValidity
	}
	v := getValidator()
	if f.Required {
		if err := v.Var(value, "required"); err != nil {
			return MessageValueMissing
		}
	}
	if value == "" {
		return ""
	}
	if f.Type == FieldTypeEmail {
		if err := v.Var(value, "email"); err != nil {
			return MessageTypeMismatch
		}
	}
	if f.MaxLength > 0 {
		if err := v.Var(value, fmt.Sprintf("max=%d", f.MaxLength)); err != nil {
			return fmt.Sprintf(messageTooLong, f.MaxLength)
		}
	}
	if f.pattern != nil && !f.pattern.MatchString(value) {
		return MessagePattern
	}
	return ""
}
