package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/career-atoms/internal/identity"
	"github.com/jonathan/career-atoms/internal/schemas"
	"github.com/jonathan/career-atoms/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return identity.IsSlug(fl.Field().String())
	})
	_ = v.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, err := types.ParseTimestamp(fl.Field().String())
		return err == nil
	})
	return v
}

var tagMessages = map[string]string{
	"slug":      "must be letters and digits separated by single hyphens",
	"timestamp": "must be an RFC 3339 timestamp",
}

// ValidateOption relaxes a Validate check.
type ValidateOption func(*validateOptions)

type validateOptions struct {
	allowDanglingJobIDs bool
}

// AllowDanglingJobIDs accepts highlights whose jobId names no job in the document.
// The importer links them to nothing and records the miss per row.
func AllowDanglingJobIDs() ValidateOption {
	return func(o *validateOptions) {
		o.allowDanglingJobIDs = true
	}
}

// Validate checks a document strictly and reports every problem at once: shape,
// required fields and the type enumeration through the backup JSON Schema, slug and
// timestamp formats per row, duplicate slugs, dangling jobId references and end dates
// before start dates. It returns nil or a *ValidationError.
func Validate(doc *types.BackupDocument, opts ...ValidateOption) error {
	var o validateOptions
	for _, opt := range opts {
		opt(&o)
	}
	if doc == nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "document is missing"}}}
	}

	shaped := *doc
	if shaped.Jobs == nil {
		shaped.Jobs = []types.BackupJob{}
	}
	if shaped.Highlights == nil {
		shaped.Highlights = []types.BackupHighlight{}
	}
	encoded, err := json.Marshal(&shaped)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	result := &ValidationError{}
	if err := schemas.ValidateBackup(encoded); err != nil {
		var schemaErr *schemas.ValidationError
		if !errors.As(err, &schemaErr) {
			return err
		}
		result.Errors = append(result.Errors, schemaErr.Errors...)
	}

	jobSlugs := make(map[string]bool, len(doc.Jobs))
	for i, job := range doc.Jobs {
		prefix := fmt.Sprintf("jobs.%d", i)
		checkRow(result, prefix, job)
		if job.ID != "" {
			if jobSlugs[job.ID] {
				result.Add(prefix+".id", fmt.Sprintf("duplicate job id %q", job.ID))
			}
			jobSlugs[job.ID] = true
		}
		if types.EndsBeforeStart(job.StartDate, job.EndDate) {
			result.Add(prefix+".endDate", "must not be before startDate")
		}
	}

	highlightSlugs := make(map[string]bool, len(doc.Highlights))
	for i, h := range doc.Highlights {
		prefix := fmt.Sprintf("highlights.%d", i)
		checkRow(result, prefix, h)
		if h.ID != "" {
			if highlightSlugs[h.ID] {
				result.Add(prefix+".id", fmt.Sprintf("duplicate highlight id %q", h.ID))
			}
			highlightSlugs[h.ID] = true
		}
		if !o.allowDanglingJobIDs && h.JobID != nil && *h.JobID != "" && !jobSlugs[*h.JobID] {
			result.Add(prefix+".jobId", fmt.Sprintf("references unknown job %q", *h.JobID))
		}
		if types.EndsBeforeStart(h.StartDate, h.EndDate) {
			result.Add(prefix+".endDate", "must not be before startDate")
		}
	}

	if len(result.Errors) == 0 {
		return nil
	}
	slices.SortStableFunc(result.Errors, func(a, b FieldError) int {
		return strings.Compare(a.Field, b.Field)
	})
	return result
}

// checkRow runs the struct tag checks of one job or highlight.
func checkRow(result *ValidationError, prefix string, row any) {
	err := validate.Struct(row)
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		result.Add(prefix, err.Error())
		return
	}
	for _, fe := range verrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}
		result.Add(prefix+"."+fe.Field(), msg)
	}
}
