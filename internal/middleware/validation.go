package middleware

import (
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var weekdayNames = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
	"mon": true, "tue": true, "wed": true, "thu": true,
	"fri": true, "sat": true, "sun": true,
}

// validWeekdays accepts a comma-separated list of weekday names
func validWeekdays(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	for _, day := range strings.Split(value, ",") {
		if !weekdayNames[strings.ToLower(strings.TrimSpace(day))] {
			return false
		}
	}
	return true
}

// RegisterValidations installs custom binding validators. Call once at
// startup, before routes are mounted.
func RegisterValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("weekdays", validWeekdays); err != nil {
			panic(err)
		}
	}
}
