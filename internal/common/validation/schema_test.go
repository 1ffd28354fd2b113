package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finquery-workers/internal/common/errors"
)

var testSchema = []byte(`{
	"type": "object",
	"required": ["question"],
	"properties": {
		"question": {"type": "string", "minLength": 1, "maxLength": 20},
		"turn": {"type": "integer", "minimum": 0},
		"options": {
			"type": "object",
			"required": ["mode"],
			"properties": {"mode": {"type": "string", "enum": ["fast", "full"]}}
		}
	}
}`)

func TestValidator_Validate(t *testing.T) {
	v := MustCompile(testSchema)

	tests := []struct {
		name       string
		vars       map[string]interface{}
		wantValid  bool
		wantFields []string
	}{
		{
			name:      "valid minimal",
			vars:      map[string]interface{}{"question": "Top expenses"},
			wantValid: true,
		},
		{
			name:      "valid with nested",
			vars:      map[string]interface{}{"question": "q", "turn": 3, "options": map[string]interface{}{"mode": "fast"}},
			wantValid: true,
		},
		{
			name:       "missing required",
			vars:       map[string]interface{}{"turn": 1},
			wantFields: []string{"question"},
		},
		{
			name:       "nil vars",
			vars:       nil,
			wantFields: []string{"question"},
		},
		{
			name:       "wrong type and too long",
			vars:       map[string]interface{}{"question": "this question is far too long for the limit", "turn": "one"},
			wantFields: []string{"question", "turn"},
		},
		{
			name:       "nested enum and required",
			vars:       map[string]interface{}{"question": "q", "options": map[string]interface{}{"mode": "slow"}},
			wantFields: []string{"options.mode"},
		},
		{
			name:       "nested missing required",
			vars:       map[string]interface{}{"question": "q", "options": map[string]interface{}{}},
			wantFields: []string{"options.mode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.vars)
			assert.Equal(t, tt.wantValid, result.Valid)
			for _, f := range tt.wantFields {
				assert.True(t, result.HasErrors(f), "expected error on %s, got %v", f, result.Errors)
			}
		})
	}
}

func TestValidator_ErrorsForNestedField(t *testing.T) {
	v := MustCompile(testSchema)
	result := v.Validate(map[string]interface{}{"question": "q", "options": map[string]interface{}{"mode": "slow"}})

	assert.Len(t, result.GetErrorsForField("options"), 1)
	assert.Empty(t, result.GetErrorsForField("question"))
}

func TestValidationResult_AsError(t *testing.T) {
	v := MustCompile(testSchema)

	assert.NoError(t, v.Validate(map[string]interface{}{"question": "ok"}).AsError())

	err := v.Validate(map[string]interface{}{}).AsError()
	require.Error(t, err)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeInvalidQueryInput, stdErr.Code)
	assert.Contains(t, stdErr.Details, "question")
	assert.Equal(t, []string{"question"}, stdErr.Metadata["fields"])
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile([]byte(`{"type": 12}`))
	assert.Error(t, err)

	assert.Panics(t, func() { MustCompile([]byte(`not json`)) })
}
