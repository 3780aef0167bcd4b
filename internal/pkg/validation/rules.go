// Package validation holds the custom validator tags used by request DTOs
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Validator is implemented by the enum-like model types
type Validator interface {
	Valid() bool
}

// Register adds the custom tags to v:
//
//	notblank  string must contain a non-space character
//	valid     value must report Valid() == true
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("notblank", notBlank); err != nil {
		return err
	}
	return v.RegisterValidation("valid", validEnum)
}

// RegisterWithGin registers the custom tags on gin's binding validator
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	return Register(v)
}

func notBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.String {
		return false
	}
	return strings.TrimSpace(field.String()) != ""
}

func validEnum(fl validator.FieldLevel) bool {
	field := fl.Field()
	if !field.CanInterface() {
		return false
	}
	v, ok := field.Interface().(Validator)
	if !ok {
		return false
	}
	return v.Valid()
}
