package handler

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const citizenIDLength = 13

// RegisterValidators installs custom binding rules on gin's validator engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("citizenid", validateCitizenID)
}

func validateCitizenID(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != citizenIDLength {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
