package catalog

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/locallibrary/internal/entities"
)

// ValidationError carries one message per rejected field, keyed by the
// field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// AsValidationError unwraps err into a ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterAlias("name_len", fmt.Sprintf("max=%d", entities.MaxNameLength))
	v.RegisterAlias("title_len", fmt.Sprintf("max=%d", entities.MaxTitleLength))
	v.RegisterAlias("imprint_len", fmt.Sprintf("max=%d", entities.MaxTitleLength))
	v.RegisterAlias("summary_len", fmt.Sprintf("max=%d", entities.MaxSummaryLength))
	v.RegisterAlias("isbn_len", fmt.Sprintf("len=%d", entities.ISBNLength))
	return v
}

// validateStruct runs the struct tags and folds failures into a ValidationError.
func (s *Service) validateStruct(input any) *ValidationError {
	verr := &ValidationError{}
	err := s.validate.Struct(input)
	if err == nil {
		return verr
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		verr.add("non_field_errors", err.Error())
		return verr
	}
	for _, fe := range verrs {
		verr.add(fe.Field(), fieldMessage(fe))
	}
	return verr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.ActualTag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", fe.Param(), utf8.RuneCountInString(fmt.Sprint(fe.Value())))
	case "len":
		return fmt.Sprintf("Ensure this value has exactly %s characters.", fe.Param())
	default:
		return "Enter a valid value."
	}
}
