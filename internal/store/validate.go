package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/career-atoms/internal/types"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateJobInput normalizes and checks a job create/update request.
// Both backends call it so they accept exactly the same inputs.
func ValidateJobInput(in *types.JobInput) error {
	in.Company = strings.TrimSpace(in.Company)
	in.Role = strings.TrimSpace(in.Role)
	in.Normalize()

	if err := validate.Struct(in); err != nil {
		return toInputError(err)
	}
	if types.EndsBeforeStart(in.StartDate, in.EndDate) {
		return &InputError{Field: "end_date", Message: "end date must be after start date"}
	}
	return nil
}

// ValidateHighlightInput normalizes and checks a highlight create/update request.
func ValidateHighlightInput(in *types.HighlightInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Normalize()

	if err := validate.Struct(in); err != nil {
		return toInputError(err)
	}
	if types.EndsBeforeStart(in.StartDate, in.EndDate) {
		return &InputError{Field: "end_date", Message: "end date must be after start date"}
	}
	return nil
}

func toInputError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &InputError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
		}
	}
	return &InputError{Message: err.Error()}
}
