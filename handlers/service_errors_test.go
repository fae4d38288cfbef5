package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/gitstats/backend/services"
	"github.com/upb/gitstats/backend/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  int
		expectedError   string
		expectedMessage string
	}{
		{
			name:            "not found error",
			err:             services.ErrGitHubUserNotFound,
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "GitHub user not found",
		},
		{
			name:            "validation error",
			err:             services.ErrInvalidUsername,
			expectedStatus:  http.StatusBadRequest,
			expectedError:   "bad_request",
			expectedMessage: "invalid GitHub username",
		},
		{
			name:            "missing credential",
			err:             services.ErrMissingCredential,
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "GitHub credential not available",
		},
		{
			name:            "rejected credential",
			err:             services.Wrap(services.ErrCredentialRejected, errors.New("Bad credentials")),
			expectedStatus:  http.StatusUnauthorized,
			expectedError:   "unauthorized",
			expectedMessage: "GitHub rejected the credential",
		},
		{
			name:            "rate limit error",
			err:             services.ErrGitHubRateLimit,
			expectedStatus:  http.StatusTooManyRequests,
			expectedError:   "rate_limit_exceeded",
			expectedMessage: "GitHub rate limit exceeded",
		},
		{
			name:            "external error",
			err:             services.Wrap(services.ErrGitHubUnavailable, errors.New("dial tcp: refused")),
			expectedStatus:  http.StatusBadGateway,
			expectedError:   "bad_gateway",
			expectedMessage: "GitHub API unavailable",
		},
		{
			name:            "internal error",
			err:             services.WrapInternal("decode failed", errors.New("unexpected EOF")),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An internal error occurred",
		},
		{
			name:            "unknown error",
			err:             errors.New("something broke"),
			expectedStatus:  http.StatusInternalServerError,
			expectedError:   "internal_error",
			expectedMessage: "An unexpected error occurred",
		},
		{
			name:            "wrapped domain error",
			err:             fmt.Errorf("load repos: %w", services.ErrGitHubUserNotFound),
			expectedStatus:  http.StatusNotFound,
			expectedError:   "not_found",
			expectedMessage: "GitHub user not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleServiceError(rec, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, rec.Code)

			var resp utils.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.expectedError, resp.Error)
			assert.Equal(t, tt.expectedMessage, resp.Message)
		})
	}
}

func TestHandleServiceError_DoesNotLeakCause(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := httptest.NewRecorder()

	HandleServiceError(rec, services.Wrap(services.ErrGitHubUnavailable, errors.New("dial tcp 10.0.0.1:443")), zap.New(core))

	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
	require.Equal(t, 1, logs.FilterMessage("github request failed").Len())
}

func TestHandleServiceError_RateLimitDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := services.Wrap(services.ErrGitHubRateLimit, nil).WithDetail("reset", "1700000000")

	HandleServiceError(rec, err, zap.NewNop())

	var resp utils.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "1700000000", resp.Details["reset"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleServiceError(rec, nil, zap.NewNop())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("validation error with fields", func(t *testing.T) {
		validationErr := &utils.ValidationError{
			Message: "Validation failed",
			Fields:  map[string]string{"login": "login is required"},
		}

		rec := httptest.NewRecorder()
		HandleValidationError(rec, validationErr, logger)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp utils.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "Validation failed", resp.Message)
		assert.Equal(t, "login is required", resp.Details["login"])
	})

	t.Run("generic error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleValidationError(rec, errors.New("invalid input"), logger)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp utils.ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "invalid input", resp.Message)
	})

	t.Run("empty validator errors", func(t *testing.T) {
		rec := httptest.NewRecorder()
		HandleValidationError(rec, utils.NewValidationError(validator.ValidationErrors{}), logger)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
