package roi

import (
	"math"
	"strings"

	"github.com/solarroi/solarroi/internal/api/models"
)

// Input is a calculation request.
type Input struct {
	Location    string
	MonthlyBill float64

	// RequestedSystemSizeKW is nil when the caller wants the recommended size.
	RequestedSystemSizeKW *float64
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// Validate checks the input before any upstream call and trims the location.
func (in *Input) Validate() error {
	var fieldErrors []models.FieldError

	in.Location = strings.TrimSpace(in.Location)
	if in.Location == "" {
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "location",
			Message: "location is required",
			Code:    "required",
		})
	}

	switch {
	case math.IsNaN(in.MonthlyBill) || math.IsInf(in.MonthlyBill, 0):
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "monthlyBill",
			Message: "monthlyBill must be a finite number",
			Code:    "invalid",
		})
	case in.MonthlyBill <= 0:
		fieldErrors = append(fieldErrors, models.FieldError{
			Field:   "monthlyBill",
			Message: "monthlyBill is required and must be greater than 0",
			Code:    "out_of_range",
		})
	}

	if size := in.RequestedSystemSizeKW; size != nil {
		if math.IsNaN(*size) || *size <= 0 || *size > MaxRequestedSizeKW {
			fieldErrors = append(fieldErrors, models.FieldError{
				Field:   "systemSizeKW",
				Message: "systemSizeKW must be between 0 and 100",
				Code:    "out_of_range",
			})
		}
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Errors: fieldErrors}
	}
	return nil
}

func (in Input) requestedSize() float64 {
	if in.RequestedSystemSizeKW == nil {
		return 0
	}
	return *in.RequestedSystemSizeKW
}
