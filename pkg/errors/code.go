package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Policy module errors
// 12000-12999: Execution module errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Cache errors (10200-10299)
	CacheError ErrorCode = 10200

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidValue       ErrorCode = 10302
	RequiredFieldEmpty ErrorCode = 10303

	// ========== Policy Module Errors (11000-11999) ==========

	PolicyNotFound    ErrorCode = 11000
	PolicyInvalid     ErrorCode = 11001
	ImportNotAllowed  ErrorCode = 11100
	SourceUnparseable ErrorCode = 11101

	// ========== Execution Module Errors (12000-12999) ==========

	SubmissionTooLarge   ErrorCode = 12000
	SubmitTooFrequently  ErrorCode = 12001
	ExecutionQueueFull   ErrorCode = 12100
	ExecutionSpawnFailed ErrorCode = 12101
	ExecutionSystemError ErrorCode = 12102
	ExecutionTimeout     ErrorCode = 12103
	WorkspaceSetupFailed ErrorCode = 12104
	InterpreterNotFound  ErrorCode = 12105
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	// System & Common
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	// Cache
	CacheError: "Cache operation failed",

	// Validation
	ValidationFailed:   "Validation failed",
	InvalidValue:       "Invalid value",
	RequiredFieldEmpty: "Required field is empty",

	// Policy
	PolicyNotFound:    "Execution policy not found",
	PolicyInvalid:     "Execution policy is invalid",
	ImportNotAllowed:  "Import is not allowed by the assignment policy",
	SourceUnparseable: "Submission source could not be parsed",

	// Execution
	SubmissionTooLarge:   "Submission source is too large",
	SubmitTooFrequently:  "Submitting too frequently, please wait",
	ExecutionQueueFull:   "Execution queue is full, please try again later",
	ExecutionSpawnFailed: "Failed to start the submission process",
	ExecutionSystemError: "Execution system error",
	ExecutionTimeout:     "Execution exceeded the time budget",
	WorkspaceSetupFailed: "Failed to prepare the execution workspace",
	InterpreterNotFound:  "Interpreter binary not found",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == NotFound, c == PolicyNotFound:
		return 404
	case c == TooManyRequests, c == SubmitTooFrequently, c == ExecutionQueueFull:
		return 429
	case c == ServiceUnavailable:
		return 503
	case c >= 10300 && c < 10400:
		return 400
	case c == InvalidParams, c == SubmissionTooLarge:
		return 400
	default:
		return 500
	}
}
