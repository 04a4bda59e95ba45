// Package schemas embeds the backup document JSON Schema and validates documents
// against it.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed backup.schema.json
var backupSchema []byte

// BackupSchema returns the JSON Schema of the strict backup document.
func BackupSchema() []byte {
	out := make([]byte, len(backupSchema))
	copy(out, backupSchema)
	return out
}

var (
	compiledBackup     *gojsonschema.Schema
	compiledBackupErr  error
	compiledBackupOnce sync.Once
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Add appends a field error.
func (ve *ValidationError) Add(field, message string) {
	ve.Errors = append(ve.Errors, FieldError{Field: field, Message: message})
}

// ValidateBackup validates JSON document bytes against the backup document schema.
func ValidateBackup(document []byte) error {
	compiledBackupOnce.Do(func() {
		compiledBackup, compiledBackupErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(backupSchema))
	})
	if compiledBackupErr != nil {
		return &SchemaLoadError{Path: "backup.schema.json", Message: "invalid embedded schema", Cause: compiledBackupErr}
	}

	result, err := compiledBackup.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &ValidationError{Errors: []FieldError{{Field: "(root)", Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	return toValidationError(result)
}

func toValidationError(result *gojsonschema.Result) error {
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		validationErr.Add(fieldPath(desc), desc.Description())
	}
	return validationErr
}

// fieldPath returns the dotted path of the offending value. Required-property errors
// point at the missing property rather than its parent object.
func fieldPath(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() == "required" {
		if property, ok := desc.Details()["property"].(string); ok && property != "" {
			if field == "" || field == "(root)" {
				return property
			}
			return field + "." + property
		}
	}
	if field == "" {
		return "(root)"
	}
	return field
}
