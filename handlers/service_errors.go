package handlers

import (
	"net/http"

	"github.com/upb/gitstats/backend/services"
	"github.com/upb/gitstats/backend/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses. Only the
// client-safe message reaches the response; the cause is logged.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	message := services.GetErrorMessage(err)
	details := services.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsUnauthorizedError(err):
		logger.Debug("github credential unusable", zap.Error(err))
		writeErr = utils.WriteUnauthorized(w, message)

	case services.IsRateLimitError(err):
		logger.Warn("github rate limit reached", zap.Error(err), zap.Any("details", details))
		writeErr = utils.WriteTooManyRequests(w, message, details)

	case services.IsExternalError(err):
		logger.Error("github request failed", zap.Error(err))
		writeErr = utils.WriteBadGateway(w, message)

	case services.IsInternalError(err):
		// Log internal errors but return generic message
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	logger.Debug("request validation failed", zap.Error(err))

	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
