package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"health-registry-server/internal/validation"
)

// Request structs declare their rules with `validate` tags; gin's own
// `binding` tags are not used so binding only decodes.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
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
	return v
}

// Validate performs validation on a struct and returns per-field messages.
func Validate(s interface{}) validation.FieldErrors {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	return FormatValidationError(err)
}

// FormatValidationError converts validator errors into field messages.
func FormatValidationError(err error) validation.FieldErrors {
	fields := validation.FieldErrors{}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		fields.AddMessage(validation.NonFieldErrors, err.Error())
		return fields
	}
	for _, e := range errs {
		fields.AddMessage(e.Field(), messageFor(e))
	}
	return fields
}

func messageFor(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "uuid", "uuid4":
		return "Must be a valid UUID."
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", e.Value())
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
	case "min":
		return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", e.Param())
	default:
		return "Invalid value."
	}
}

// BindAndValidate binds the request body to a struct and validates it.
// If validation fails, it sends a 400 response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		ValidationFailed(c, bindingErrors(err))
		return false
	}
	if fields := Validate(obj); fields.HasErrors() {
		ValidationFailed(c, fields)
		return false
	}
	return true
}

func bindingErrors(err error) validation.FieldErrors {
	fields := validation.FieldErrors{}
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr) && typeErr.Field != "":
		fields.AddMessage(typeErr.Field, fmt.Sprintf("Expected a value of type %s.", typeErr.Type.String()))
	case errors.Is(err, io.EOF):
		fields.AddMessage(validation.NonFieldErrors, "Request body is empty.")
	case errors.As(err, &syntaxErr):
		fields.AddMessage(validation.NonFieldErrors, "Malformed JSON body.")
	default:
		fields.AddMessage(validation.NonFieldErrors, "Invalid request payload.")
	}
	return fields
}
