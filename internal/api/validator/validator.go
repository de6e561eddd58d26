package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playgroundvalidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"hms/internal/models"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() echo.Validator {
	v := playgroundvalidator.New()

	// Report JSON field names in validation errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.RegisterValidation("user_status", validateUserStatus)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("hospital_status", validateHospitalStatus)
	if err != nil {
		return nil
	}
	err = v.RegisterValidation("patient_type", validatePatientType)
	if err != nil {
		return nil
	}

	return &CustomValidator{validator: v}
}

func validateUserStatus(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidUserStatus(models.UserStatus(fl.Field().String()))
}

func validateHospitalStatus(fl playgroundvalidator.FieldLevel) bool {
	return models.IsValidHospitalStatus(models.HospitalStatus(fl.Field().String()))
}

func validatePatientType(fl playgroundvalidator.FieldLevel) bool {
	t := fl.Field().String()
	return t == string(models.PatientTypeOPD) || t == string(models.PatientTypeIPD)
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields returns a field-to-message map for the error response envelope.
func (ve ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(ve))
	for _, err := range ve {
		out[err.Field()] = messageFor(err)
	}
	return out
}

func messageFor(err playgroundvalidator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "uuid":
		return "must be a valid UUID"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	case "user_status":
		return "must be a valid user status"
	case "hospital_status":
		return "must be a valid hospital status"
	case "patient_type":
		return "must be OPD or IPD"
	default:
		return fmt.Sprintf("failed %s validation", err.Tag())
	}
}
