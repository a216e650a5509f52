package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// noteValidate is the validator instance for note requests.
// Initialized in init() with custom validators.
var noteValidate *validator.Validate

func init() {
	noteValidate = validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so field errors line up with the request body.
	noteValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := noteValidate.RegisterValidation("notblank", validateNotBlank); err != nil {
		panic(fmt.Sprintf("register notblank validation: %v", err))
	}
}

// validateNotBlank rejects strings that are empty or contain only whitespace.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// NoteRequest is the body of POST /notes and PUT /notes/{id}.
//
// Version is optional. When set on an update it is an explicit precondition:
// the update fails with a conflict unless the stored version still matches.
type NoteRequest struct {
	Title   string  `json:"title" validate:"notblank,max=255"`
	Content string  `json:"content"`
	Version *uint64 `json:"version,omitempty"`
}

// Validate checks the request against its field rules. It returns nil or a
// [FieldErrors] value.
func (r *NoteRequest) Validate() error {
	return ValidateNote(r.Title, r.Content)
}

// ValidateNote checks title and content against the rules every persisted
// note must satisfy.
func ValidateNote(title, content string) error {
	err := noteValidate.Struct(&NoteRequest{Title: title, Content: content})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	label := fieldLabel(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return label + " is required"
	case "max":
		return fmt.Sprintf("%s must be less than %s characters", label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", label)
	}
}

func fieldLabel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

// FieldErrors maps a JSON field name to a human readable message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
