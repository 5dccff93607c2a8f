package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/go-playground/validator/v10"
	"github.com/ulule/limiter/v3"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// These should never fail in normal operation
	if err := Validate.RegisterValidation("holiday_date", validateHolidayDate); err != nil {
		panic(fmt.Sprintf("failed to register holiday_date validator: %v", err))
	}
	if err := Validate.RegisterValidation("rate_format", validateRateFormat); err != nil {
		panic(fmt.Sprintf("failed to register rate_format validator: %v", err))
	}
	if err := Validate.RegisterValidation("quadrant", validateQuadrant); err != nil {
		panic(fmt.Sprintf("failed to register quadrant validator: %v", err))
	}
	if err := Validate.RegisterValidation("strategy", validateStrategy); err != nil {
		panic(fmt.Sprintf("failed to register strategy validator: %v", err))
	}
	if err := Validate.RegisterValidation("timezone", validateTimezone); err != nil {
		panic(fmt.Sprintf("failed to register timezone validator: %v", err))
	}
}

// validateHolidayDate accepts a YYYY-MM-DD calendar date
func validateHolidayDate(fl validator.FieldLevel) bool {
	_, err := models.ParseDate(fl.Field().String())
	return err == nil
}

// validateRateFormat accepts limiter rates such as 5-S, 100-M or 1000-H
func validateRateFormat(fl validator.FieldLevel) bool {
	return ValidateRate(fl.Field().String()) == nil
}

func validateQuadrant(fl validator.FieldLevel) bool {
	_, ok := models.ParseQuadrant(fl.Field().String())
	return ok
}

func validateStrategy(fl validator.FieldLevel) bool {
	return scoring.IsStrategy(fl.Field().String())
}

func validateTimezone(fl validator.FieldLevel) bool {
	_, err := time.LoadLocation(fl.Field().String())
	return err == nil
}

// ValidateRate checks a limiter rate string
func ValidateRate(rate string) error {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return fmt.Errorf("rate is required (e.g. 5-S, 100-M)")
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	return nil
}

// FirstError renders the first field failure of a validator error for API responses.
func FirstError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		if fe.Param() != "" {
			return fmt.Sprintf("Validation failed: %s must satisfy %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return fmt.Sprintf("Validation failed: %s must satisfy %s", fe.Namespace(), fe.Tag())
	}
	return "Validation failed"
}

// SanitizeText trims whitespace and removes control characters other than newline and tab
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
