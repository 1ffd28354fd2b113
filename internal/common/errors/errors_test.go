package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	tests := []struct {
		name            string
		err             *StandardError
		expectedCode    string
		expectedRetries int
	}{
		{
			name:            "retryable dataset load",
			err:             NewDatasetLoadFailedError("postgres", fmt.Errorf("connection refused")),
			expectedCode:    "DATASET_LOAD_FAILED",
			expectedRetries: 3,
		},
		{
			name:            "invalid input is not retried",
			err:             NewInvalidQueryInputError("question is required"),
			expectedCode:    "INVALID_QUERY_INPUT",
			expectedRetries: 0,
		},
		{
			name:            "unmapped code falls back to raw code",
			err:             NewCacheUnavailableError(fmt.Errorf("dial tcp")),
			expectedCode:    "CACHE_UNAVAILABLE",
			expectedRetries: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bpmn := ConvertToBPMNError(tt.err)
			assert.Equal(t, tt.expectedCode, bpmn.Code)
			assert.Equal(t, tt.expectedRetries, bpmn.Retries)

			vars := bpmn.ToErrorVariables()
			assert.Equal(t, tt.expectedCode, vars["errorCode"])
			assert.Equal(t, string(tt.err.Code), vars["originalErrorCode"])
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	tests := map[ErrorCode]string{
		ErrCodeParseAmbiguity:                "QUERY",
		ErrCodeDataUnavailable:               "QUERY",
		ErrCodeArtifactValidationFailed:      "DATASET",
		ErrCodeDatasetLoadFailed:             "DATASET",
		ErrCodeDatabaseConnectionFailed:      "DATABASE",
		ErrCodeQueryExecutionFailed:          "DATABASE",
		ErrCodeElasticsearchConnectionFailed: "SEARCH",
		ErrCodeIndexNotFound:                 "SEARCH",
		ErrCodeCacheUnavailable:              "CACHE",
		ErrCodeInvalidQueryInput:             "VALIDATION",
		ErrCodeInternal:                      "OTHER",
	}

	for code, expected := range tests {
		assert.Equal(t, expected, GetErrorCategory(code), string(code))
	}
}

func TestAsStandardError(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", NewIndexNotFoundError("movements"))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeIndexNotFound, stdErr.Code)
	assert.Contains(t, stdErr.Error(), "StandardError[INDEX_NOT_FOUND]")

	_, ok = AsStandardError(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeSearchQueryFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeParseAmbiguity))
	assert.False(t, IsRetryableErrorCode(ErrCodeArtifactLookupMiss))
}
