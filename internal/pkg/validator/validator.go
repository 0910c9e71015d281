package validator

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Service type validation
	validate.RegisterValidation("service_type", func(fl validator.FieldLevel) bool {
		serviceType := fl.Field().String()
		validTypes := []string{"laundry", "dry_cleaning", "suit_cleaning", "shoe_cleaning", "multiple"}
		for _, t := range validTypes {
			if serviceType == t {
				return true
			}
		}
		return false
	})

	// Payment method validation
	validate.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
		method := fl.Field().String()
		validMethods := []string{"cash", "card", "wallet"}
		for _, m := range validMethods {
			if method == m {
				return true
			}
		}
		return false
	})

	// Addon type validation
	validate.RegisterValidation("addon_type", func(fl validator.FieldLevel) bool {
		addonType := fl.Field().String()
		validAddons := []string{"stain_treatment", "whitening", "scent_boosters", "repairs"}
		for _, a := range validAddons {
			if addonType == a {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = fmt.Sprintf("Must be at least %s", err.Param())
		case "max":
			errors[field] = fmt.Sprintf("Must be at most %s", err.Param())
		case "service_type":
			errors[field] = "Invalid service type"
		case "payment_method":
			errors[field] = "Invalid payment method"
		case "addon_type":
			errors[field] = "Invalid addon type"
		default:
			errors[field] = fmt.Sprintf("Invalid value (%s)", err.Tag())
		}
	}

	return errors
}
