// Package validation checks job variables against JSON schemas before a handler decodes them.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"finquery-workers/internal/common/errors"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds one compiled schema and is safe for concurrent use.
type Validator struct {
	schema *gojsonschema.Schema
}

// Compile parses a JSON schema document.
func Compile(schemaJSON []byte) (*Validator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaJSON []byte) *Validator {
	v, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks job variables. Errors are sorted by field so results are stable.
func (v *Validator) Validate(vars map[string]interface{}) *ValidationResult {
	if vars == nil {
		vars = map[string]interface{}{}
	}
	result, err := v.schema.Validate(gojsonschema.NewGoLoader(vars))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "UNREADABLE_INPUT"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		field := e.Field()
		// required errors are reported against the parent; name the missing property instead
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok {
				field = joinField(field, prop)
			}
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: e.Description(),
			Code:    strings.ToUpper(e.Type()),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out
}

func joinField(parent, prop string) string {
	if parent == "" || parent == "(root)" {
		return prop
	}
	return parent + "." + prop
}

// GetErrorMessages returns "field: message" lines.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	return len(vr.GetErrorsForField(field)) > 0
}

// GetErrorsForField returns errors for field and anything nested under it.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// AsError converts a failed result to an INVALID_QUERY_INPUT error, or nil when valid.
func (vr *ValidationResult) AsError() error {
	if vr.Valid {
		return nil
	}
	stdErr := errors.NewInvalidQueryInputError(strings.Join(vr.GetErrorMessages(), "; "))
	stdErr.Metadata = map[string]interface{}{"fields": vr.fields()}
	return stdErr
}

func (vr *ValidationResult) fields() []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range vr.Errors {
		if !seen[e.Field] {
			seen[e.Field] = true
			out = append(out, e.Field)
		}
	}
	return out
}
