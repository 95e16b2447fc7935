// Package validation checks form input before it is sent and reports problems
// in the same field-to-messages shape the API uses for 400 responses.
package validation

import (
	"errors"
	"fmt"
	"net/mail"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/taskdesk-dev/taskdesk/internal/models"
	"github.com/taskdesk-dev/taskdesk/internal/richtext"
)

// NonFieldKey collects messages that do not belong to a single field.
const NonFieldKey = "non_field_errors"

// Errors maps JSON field names to human-readable messages.
type Errors struct {
	Fields map[string][]string
}

func (e *Errors) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], " ")))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldErrors returns the field map.
func (e *Errors) FieldErrors() map[string][]string {
	return e.Fields
}

// Add appends a message for field.
func (e *Errors) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the shared validator with the task-specific rules
// registered.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = New()
	})
	return instance
}

// New builds a validator with JSON field naming and custom rules.
func New() *validator.Validate {
	v := validator.New()

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

	// Descriptions validate as their visible text.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if doc, ok := field.Interface().(richtext.Document); ok {
			return strings.TrimSpace(doc.PlainText())
		}
		return nil
	}, richtext.Document{})

	v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
		return models.Status(fl.Field().String()).Valid()
	})

	v.RegisterValidation("optional_email", func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		addr, err := mail.ParseAddress(value)
		return err == nil && addr.Address == value
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		patch := sl.Current().Interface().(models.TaskPatch)
		if patch.DueDate.Set && !patch.DueDate.Null {
			if _, err := time.Parse(models.DateLayout, patch.DueDate.Value); err != nil {
				sl.ReportError(patch.DueDate.Value, "due_date", "DueDate", "datetime", models.DateLayout)
			}
		}
		for name, f := range map[string]models.Field[int64]{
			"client_id":          patch.ClientID,
			"assigned_worker_id": patch.AssignedWorkerID,
		} {
			if f.Set && !f.Null && f.Value <= 0 {
				sl.ReportError(f.Value, name, name, "gt", "0")
			}
		}
	}, models.TaskPatch{})

	return v
}

// Struct validates s and returns *Errors when any rule fails.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}
	return FromValidator(verrs)
}

// FromValidator converts validator errors to the API's field map.
func FromValidator(verrs validator.ValidationErrors) *Errors {
	out := &Errors{}
	for _, fe := range verrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return "This field may not be blank."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "email", "optional_email":
		return "Enter a valid email address."
	case "datetime":
		return "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	case "task_status":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(fe.Value()))
	case "gt":
		return fmt.Sprintf("Invalid pk %q - object does not exist.", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
