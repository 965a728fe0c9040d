package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Error is a rejected field with the message shown to the user.
type Error struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// IsError reports whether err is (or wraps) a validation failure.
func IsError(err error) bool {
	var verr *Error
	return errors.As(err, &verr)
}

var (
	engineOnce sync.Once
	engine     *validator.Validate
)

func instance() *validator.Validate {
	engineOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(fmt.Sprintf("validate: register notblank: %v", err))
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		engine = v
	})
	return engine
}

// messages maps "field.tag" to the user-facing sentence.
type messages map[string]string

// check validates form and converts the first failing rule into *Error.
func check(form any, msgs messages) error {
	err := instance().Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validate %T: %w", form, err)
	}
	fe := fieldErrs[0]
	msg, ok := msgs[fe.Field()+"."+fe.Tag()]
	if !ok {
		msg = fmt.Sprintf("Invalid value for %s.", fe.Field())
	}
	return &Error{Field: fe.Field(), Message: msg}
}
