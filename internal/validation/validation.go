package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/od-tracker-api/internal/models"
)

const odStatusTag = "od_status"

// New returns a validator that reports JSON field names and knows the od_status tag.
func New() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(odStatusTag, func(fl validator.FieldLevel) bool {
		_, ok := models.ParseODStatus(fl.Field().String())
		return ok
	})

	return validate
}

// Describe renders validation failures as a single human readable sentence.
func Describe(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		messages = append(messages, describeField(fieldErr))
	}
	return strings.Join(messages, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case odStatusTag:
		return fmt.Sprintf("%s must be one of %s", field, models.JoinODStatuses(", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
