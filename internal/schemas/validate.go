// Package schemas validates request bodies against embedded JSON Schemas.
package schemas

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/types"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed job.schema.json
var jobSchemaJSON []byte

// Mode selects which job schema variant to validate against.
type Mode int

const (
	// CreateMode requires every field except id and timestamps.
	CreateMode Mode = iota
	// UpdateMode requires no fields but at least one property.
	UpdateMode
)

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

// jobDateChecker accepts the same date forms as types.Date.
type jobDateChecker struct{}

func (jobDateChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	if !ok {
		return false
	}
	_, err := types.ParseDate(s)
	return err == nil
}

func init() {
	gojsonschema.FormatCheckers.Add("job-date", jobDateChecker{})
}

var (
	compileOnce  sync.Once
	createSchema *gojsonschema.Schema
	updateSchema *gojsonschema.Schema
	compileErr   error
)

func compile() error {
	compileOnce.Do(func() {
		createSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(jobSchemaJSON))
		if compileErr != nil {
			compileErr = &SchemaLoadError{Path: "job.schema.json", Message: "invalid create schema", Cause: compileErr}
			return
		}

		// The update variant is the same schema without required fields.
		var raw map[string]any
		if err := json.Unmarshal(jobSchemaJSON, &raw); err != nil {
			compileErr = &SchemaLoadError{Path: "job.schema.json", Message: "invalid schema JSON", Cause: err}
			return
		}
		delete(raw, "required")
		raw["minProperties"] = 1

		updateSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewGoLoader(raw))
		if compileErr != nil {
			compileErr = &SchemaLoadError{Path: "job.schema.json", Message: "invalid update schema", Cause: compileErr}
		}
	})
	return compileErr
}

// ValidateJob validates a raw JSON job body. Schema violations are returned as
// *apperrors.ValidationError with one entry per failing field.
func ValidateJob(body []byte, mode Mode) error {
	if err := compile(); err != nil {
		return err
	}

	schema := createSchema
	if mode == UpdateMode {
		schema = updateSchema
	}

	if !json.Valid(body) {
		return apperrors.NewValidation("(root)", "Request body must be valid JSON")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return apperrors.NewValidation("(root)", "Request body must be valid JSON")
	}
	if result.Valid() {
		return nil
	}

	validationErr := &apperrors.ValidationError{
		Fields: make([]apperrors.FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		validationErr.Fields = append(validationErr.Fields, describe(desc))
	}
	sort.SliceStable(validationErr.Fields, func(i, j int) bool {
		return fieldOrder(validationErr.Fields[i].Field) < fieldOrder(validationErr.Fields[j].Field)
	})
	return validationErr
}

var fieldLabels = map[string]string{
	"id":          "Job ID",
	"title":       "Title",
	"company":     "Company",
	"location":    "Location",
	"url":         "URL",
	"description": "Description",
	"level":       "Level",
	"mode":        "Mode",
	"stage":       "Stage",
	"date_posted": "Date posted",
	"active":      "Active status",
	"createdAt":   "Created at",
	"updatedAt":   "Updated at",
}

var fieldSequence = []string{
	"id", "title", "company", "location", "url", "description",
	"level", "mode", "stage", "date_posted", "active", "createdAt", "updatedAt",
}

func fieldOrder(field string) int {
	for i, f := range fieldSequence {
		if f == field {
			return i
		}
	}
	return len(fieldSequence)
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

// describe turns a schema error into a field error with a readable message.
func describe(desc gojsonschema.ResultError) apperrors.FieldError {
	field := desc.Field()
	details := desc.Details()

	switch desc.Type() {
	case "required":
		prop := fmt.Sprint(details["property"])
		return apperrors.FieldError{Field: prop, Message: label(prop) + " is required"}
	case "additional_property_not_allowed":
		prop := fmt.Sprint(details["property"])
		return apperrors.FieldError{Field: prop, Message: fmt.Sprintf("%q is not allowed", prop)}
	case "array_min_properties":
		return apperrors.FieldError{Field: "(root)", Message: "At least one field must be provided"}
	case "string_gte":
		return apperrors.FieldError{Field: field, Message: label(field) + " cannot be empty"}
	case "enum":
		return apperrors.FieldError{Field: field, Message: "Invalid " + field + " value"}
	case "format":
		if field == "url" {
			return apperrors.FieldError{Field: field, Message: "Invalid URL format"}
		}
		return apperrors.FieldError{Field: field, Message: label(field) + " must be a valid date"}
	case "invalid_type":
		if field == "(root)" {
			return apperrors.FieldError{Field: field, Message: "Request body must be a JSON object"}
		}
		return apperrors.FieldError{Field: field, Message: fmt.Sprintf("%s must be a %v", label(field), details["expected"])}
	default:
		return apperrors.FieldError{Field: field, Message: desc.Description()}
	}
}
