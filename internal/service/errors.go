package service

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/impactlens/nlq-engine/internal/errors"
)

// formatErrorResponse converts an error into the API error envelope
func formatErrorResponse(err error) gin.H {
	if coded, ok := err.(*apperrors.CodedError); ok {
		errBody := gin.H{
			"code":    coded.Code,
			"message": coded.Message,
		}

		if coded.Details != "" {
			errBody["details"] = coded.Details
		}
		if coded.Suggestion != "" {
			errBody["suggestion"] = coded.Suggestion
		}
		if coded.Documentation != "" {
			errBody["documentation"] = coded.Documentation
		}
		if len(coded.Metadata) > 0 {
			errBody["metadata"] = coded.Metadata
		}

		return gin.H{"error": errBody}
	}

	return gin.H{
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": err.Error(),
		},
	}
}

// getErrorStatusCode returns the appropriate HTTP status code for an error
func getErrorStatusCode(err error) int {
	coded, ok := err.(*apperrors.CodedError)
	if !ok {
		return http.StatusInternalServerError
	}

	switch coded.Code {
	case apperrors.ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeParameterValidation,
		apperrors.ErrCodeRender,
		apperrors.ErrCodeTimeWindowExceeded,
		apperrors.ErrCodeRowLimitExceeded,
		apperrors.ErrCodeDisallowedGroupBy,
		apperrors.ErrCodeDisallowedFilter,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired:
		return http.StatusBadRequest
	case apperrors.ErrCodeMissingTenant,
		apperrors.ErrCodeNotAuthenticated,
		apperrors.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case apperrors.ErrCodeInsufficientPerms:
		return http.StatusForbidden
	case apperrors.ErrCodeSafetyValidation,
		apperrors.ErrCodeExecutionRefused:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeDatabaseConnection,
		apperrors.ErrCodeExecutionFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
