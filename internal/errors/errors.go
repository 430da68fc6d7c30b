// Package errors provides coded error types with helpful context and suggestions
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Query generation errors
	ErrCodeTemplateNotFound    ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeParameterValidation ErrorCode = "PARAMETER_VALIDATION_FAILED"
	ErrCodeRender              ErrorCode = "RENDER_FAILED"
	ErrCodeSchemaValidation    ErrorCode = "SCHEMA_VALIDATION_FAILED"
	ErrCodeSafetyValidation    ErrorCode = "SAFETY_VALIDATION_FAILED"

	// Parameter validation errors
	ErrCodeTimeWindowExceeded ErrorCode = "TIME_WINDOW_EXCEEDED"
	ErrCodeRowLimitExceeded   ErrorCode = "ROW_LIMIT_EXCEEDED"
	ErrCodeDisallowedGroupBy  ErrorCode = "DISALLOWED_GROUP_BY"
	ErrCodeDisallowedFilter   ErrorCode = "DISALLOWED_FILTER"
	ErrCodeMissingTenant      ErrorCode = "MISSING_TENANT_ID"

	// Execution boundary errors
	ErrCodeExecutionRefused ErrorCode = "EXECUTION_REFUSED"
	ErrCodeExecutionFailed  ErrorCode = "EXECUTION_FAILED"

	// Database errors
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQuery      ErrorCode = "DATABASE_QUERY_FAILED"

	// Authentication errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTokenCreation      ErrorCode = "TOKEN_CREATION_FAILED"
	ErrCodeNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeInsufficientPerms  ErrorCode = "INSUFFICIENT_PERMISSIONS"

	// Input validation errors
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"

	// Cache errors
	ErrCodeCacheRead  ErrorCode = "CACHE_READ_FAILED"
	ErrCodeCacheWrite ErrorCode = "CACHE_WRITE_FAILED"
)

// CodedError represents an error with additional context and helpful information
type CodedError struct {
	Code          ErrorCode              `json:"code"`
	Message       string                 `json:"message"`
	Details       string                 `json:"details,omitempty"`
	Suggestion    string                 `json:"suggestion,omitempty"`
	Documentation string                 `json:"documentation,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Cause         error                  `json:"-"`
}

// Error implements the error interface
func (e *CodedError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.Details != "" {
		sb.WriteString(fmt.Sprintf(": %s", e.Details))
	}
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(" (cause: %v)", e.Cause))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain unwrapping
func (e *CodedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message with suggestions
func (e *CodedError) UserMessage() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString(fmt.Sprintf("\n\nDetails: %s", e.Details))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion))
	}

	if e.Documentation != "" {
		sb.WriteString(fmt.Sprintf("\n\nLearn more: %s", e.Documentation))
	}

	return sb.String()
}

// New creates a new CodedError
func New(code ErrorCode, message string) *CodedError {
	return &CodedError{
		Code:     code,
		Message:  message,
		Metadata: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with coded context
func Wrap(err error, code ErrorCode, message string) *CodedError {
	return &CodedError{
		Code:     code,
		Message:  message,
		Cause:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithDetails adds detailed information about the error
func (e *CodedError) WithDetails(details string) *CodedError {
	e.Details = details
	return e
}

// WithSuggestion adds a suggestion on how to fix the error
func (e *CodedError) WithSuggestion(suggestion string) *CodedError {
	e.Suggestion = suggestion
	return e
}

// WithMetadata adds additional metadata to the error
func (e *CodedError) WithMetadata(key string, value interface{}) *CodedError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Common error constructors with pre-configured messages

// NewTemplateNotFoundError creates an error for unknown template ids
func NewTemplateNotFoundError(templateID string) *CodedError {
	return New(ErrCodeTemplateNotFound, "Query template not found").
		WithDetails(fmt.Sprintf("No template registered with id: '%s'", templateID)).
		WithSuggestion("Only pre-approved templates can generate queries. Use the /api/v1/templates endpoint to list available template ids.").
		WithMetadata("template_id", templateID)
}

// NewParameterValidationError creates an error for parameter constraint violations
func NewParameterValidationError(field, reason string) *CodedError {
	return New(ErrCodeParameterValidation, "Query parameters failed validation").
		WithDetails(fmt.Sprintf("Parameter '%s' is invalid: %s", field, reason)).
		WithSuggestion("Adjust the request so every parameter satisfies the template's declared constraints and retry.").
		WithMetadata("parameter", field)
}

// NewTimeWindowError creates an error for requests exceeding a template's time window
func NewTimeWindowError(requestedDays, maxDays int) *CodedError {
	return New(ErrCodeTimeWindowExceeded, "Requested time window exceeds template maximum").
		WithDetails(fmt.Sprintf("The request spans %d days but the template allows at most %d days", requestedDays, maxDays)).
		WithSuggestion(fmt.Sprintf("Reduce the time range to %d days or less. For longer horizons use a template with a wider window.", maxDays)).
		WithMetadata("requested_days", requestedDays).
		WithMetadata("max_days", maxDays)
}

// NewRowLimitError creates an error for limits above a template's cap
func NewRowLimitError(requested, max int) *CodedError {
	return New(ErrCodeRowLimitExceeded, "Requested row limit exceeds template maximum").
		WithDetails(fmt.Sprintf("The request asked for %d rows but the template allows at most %d", requested, max)).
		WithSuggestion(fmt.Sprintf("Lower the limit to %d or less, or paginate on the caller side.", max))
}

// NewMissingTenantError creates an error for tenant-scoped templates called without a tenant
func NewMissingTenantError(templateID string) *CodedError {
	return New(ErrCodeMissingTenant, "Tenant id is required for this template").
		WithDetails(fmt.Sprintf("Template '%s' requires tenant isolation but no company id was supplied", templateID)).
		WithSuggestion("This is a caller bug: the company id must come from the authenticated request context.").
		WithMetadata("template_id", templateID)
}

// NewRenderError creates an error for template rendering failures
func NewRenderError(param, reason string) *CodedError {
	return New(ErrCodeRender, "Template rendering failed").
		WithDetails(fmt.Sprintf("Parameter '%s': %s", param, reason)).
		WithSuggestion("Rendering never substitutes a value that fails its type check. Correct the offending parameter and retry.").
		WithMetadata("parameter", param)
}

// NewSchemaValidationError creates an error for rendered SQL failing template integrity checks
func NewSchemaValidationError(reason string) *CodedError {
	return New(ErrCodeSchemaValidation, "Rendered SQL failed template integrity validation").
		WithDetails(reason).
		WithSuggestion("This indicates a defect in the template definition itself, not in the request. Report it to the catalog maintainers.")
}

// NewSafetyValidationError creates an error carrying the guardrail violation list
func NewSafetyValidationError(violationCodes []string, overallSeverity string) *CodedError {
	return New(ErrCodeSafetyValidation, "Generated query failed safety validation").
		WithDetails(fmt.Sprintf("%d guardrail check(s) failed with overall severity '%s'", len(violationCodes), overallSeverity)).
		WithSuggestion("The query was rejected fail-closed and must not be executed. Inspect the violation codes for the failing checks.").
		WithMetadata("violation_codes", violationCodes).
		WithMetadata("overall_severity", overallSeverity)
}

// NewExecutionRefusedError creates an error for attempts to execute an unsafe result
func NewExecutionRefusedError(templateID string) *CodedError {
	return New(ErrCodeExecutionRefused, "Refusing to execute query without passing safety validation").
		WithDetails(fmt.Sprintf("The generation result for template '%s' is not marked safe", templateID)).
		WithSuggestion("Only results with a passing safety validation may reach an executor. Regenerate the query and check the violation list.").
		WithMetadata("template_id", templateID)
}

// NewInvalidCredentialsError creates an error for authentication failures
func NewInvalidCredentialsError() *CodedError {
	return New(ErrCodeInvalidCredentials, "Invalid credentials").
		WithDetails("Authentication failed with the provided credentials").
		WithSuggestion("Check the API key or token and try again. If you've lost your key, contact your administrator.")
}

// NewNotAuthenticatedError creates an error for unauthenticated requests
func NewNotAuthenticatedError() *CodedError {
	return New(ErrCodeNotAuthenticated, "Authentication required").
		WithDetails("This endpoint requires an authenticated tenant context").
		WithSuggestion("Include a valid bearer token; the tenant id is read from its claims, never from the request body.")
}

// NewInvalidInputError creates an error for invalid input
func NewInvalidInputError(field string, reason string) *CodedError {
	return New(ErrCodeInvalidInput, "Invalid input").
		WithDetails(fmt.Sprintf("Field '%s' is invalid: %s", field, reason)).
		WithSuggestion("Check the API documentation for the expected format and try again.")
}

// NewDatabaseConnectionError creates an error for database connection failures
func NewDatabaseConnectionError(err error) *CodedError {
	return Wrap(err, ErrCodeDatabaseConnection, "Database connection failed").
		WithDetails("Unable to connect to the database").
		WithSuggestion("This is an internal server error. The service may be experiencing issues. Please try again in a moment.").
		WithMetadata("retryable", true)
}

// NewDatabaseQueryError creates an error for database query failures
func NewDatabaseQueryError(err error, operation string) *CodedError {
	return Wrap(err, ErrCodeDatabaseQuery, "Database query failed").
		WithDetails(fmt.Sprintf("Failed to execute database operation: %s", operation)).
		WithSuggestion("This is an internal server error. If the problem persists, contact support.").
		WithMetadata("retryable", true)
}
