package httputil

// Machine-readable error codes returned alongside error messages
const (
	CodeInternalError      = "INTERNAL_ERROR"
	CodeInvalidRequestBody = "INVALID_REQUEST_BODY"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeNotFound           = "NOT_FOUND"
	CodeTooManyRequests    = "TOO_MANY_REQUESTS"

	// Authentication
	CodeMissingAuth       = "MISSING_AUTH"
	CodeInvalidAuthHeader = "INVALID_AUTH_HEADER"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeAuthError         = "AUTH_ERROR"
	CodeForbidden         = "FORBIDDEN"

	// Personal access tokens
	CodeTokenNotFound = "TOKEN_NOT_FOUND"

	// Email settings
	CodeSettingsNotFound = "SETTINGS_NOT_FOUND"
	CodeInvalidTimeZone  = "INVALID_TIME_ZONE"
	CodeInvalidTime      = "INVALID_PREFERRED_TIME"
	CodeEmailUnknown     = "EMAIL_UNKNOWN"
	CodeEmailSendFailed  = "EMAIL_SEND_FAILED"

	// Diary and recommendations
	CodeEntryNotFound     = "ENTRY_NOT_FOUND"
	CodeGenerationFailed  = "GENERATION_FAILED"
	CodeInvalidPagination = "INVALID_PAGINATION"
)
