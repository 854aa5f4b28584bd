package forms

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

// MsgRequired is shown above a form when any required field is empty.
const MsgRequired = "Please fill in all required fields"

var (
	validate  = validator.New(validator.WithRequiredStructEnabled())
	sanitizer = bluemonday.StrictPolicy()
)

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Validate before any network call is made.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if v.HasRequired() {
		return MsgRequired
	}
	if len(v) == 0 {
		return "validation failed"
	}
	return v[0].Message
}

func (v ValidationErrors) HasRequired() bool {
	for _, e := range v {
		if strings.HasSuffix(e.Message, " is required") {
			return true
		}
	}
	return false
}

// For returns the message for a field, or "".
func (v ValidationErrors) For(field string) string {
	for _, e := range v {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

func validateStruct(s any, labels map[string]string) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		label := labels[fe.Field()]
		if label == "" {
			label = fe.Field()
		}
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", label)
		case "number":
			msg = fmt.Sprintf("%s must be a whole number", label)
		case "datetime":
			msg = fmt.Sprintf("%s must be a date (YYYY-MM-DD)", label)
		case "uri":
			msg = fmt.Sprintf("%s must be a URL or an absolute path", label)
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
		default:
			msg = fmt.Sprintf("%s is invalid", label)
		}
		out = append(out, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

// hasMarkup reports whether s contains HTML tags. Entities and stray
// ampersands are plain text.
func hasMarkup(s string) bool {
	return html.UnescapeString(sanitizer.Sanitize(s)) != html.UnescapeString(s)
}

// markupErrors checks free-text fields, given as name/value pairs, for HTML.
func markupErrors(labels map[string]string, fields ...[2]string) error {
	var out ValidationErrors
	for _, f := range fields {
		if hasMarkup(f[1]) {
			out = append(out, FieldError{Field: f[0], Message: labels[f[0]] + " must not contain HTML markup"})
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
