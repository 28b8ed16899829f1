package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates s against its `validate` tags. When a field fails and
// carries a `msg` tag, that text is returned as the error message.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("validation failed: %w", err)
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, messageFor(s, fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func messageFor(s any, fe validator.FieldError) string {
	if msg := fieldMessage(s, fe.StructField()); msg != "" {
		return msg
	}
	return fmt.Sprintf("field '%s' failed validation: %s", fe.Field(), fe.Tag())
}

func fieldMessage(s any, name string) string {
	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return ""
	}
	f, ok := t.FieldByName(name)
	if !ok {
		return ""
	}
	return f.Tag.Get("msg")
}
