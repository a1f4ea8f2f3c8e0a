package llm

import (
	"fmt"
	"net/http"
)

// ErrorType classifies failures of a backend call.
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeProvider
	ErrorTypeRequest
	ErrorTypeResponse
	ErrorTypeAPI
	ErrorTypeRateLimit
	ErrorTypeAuthentication
	ErrorTypeInvalidInput
)

var errorTypeNames = map[ErrorType]string{
	ErrorTypeProvider:       "ProviderError",
	ErrorTypeRequest:        "RequestError",
	ErrorTypeResponse:       "ResponseError",
	ErrorTypeAPI:            "APIError",
	ErrorTypeRateLimit:      "RateLimitError",
	ErrorTypeAuthentication: "AuthenticationError",
	ErrorTypeInvalidInput:   "InvalidInputError",
}

func (t ErrorType) String() string {
	if name, ok := errorTypeNames[t]; ok {
		return name
	}
	return "UnknownError"
}

// LLMError is the error returned by LLM.Generate.
type LLMError struct {
	Type    ErrorType
	Message string
	// StatusCode is the HTTP status of the failed response, if there was one.
	StatusCode int
	Err        error
}

func (e *LLMError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed. Authentication
// failures and invalid input fail the same way every time.
func (e *LLMError) Retryable() bool {
	switch e.Type {
	case ErrorTypeAuthentication, ErrorTypeInvalidInput, ErrorTypeProvider:
		return false
	default:
		return true
	}
}

func NewLLMError(errType ErrorType, message string, err error) *LLMError {
	return &LLMError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// newStatusError classifies a non-200 response.
func newStatusError(status int) *LLMError {
	var errType ErrorType
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		errType = ErrorTypeAuthentication
	case http.StatusTooManyRequests:
		errType = ErrorTypeRateLimit
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		errType = ErrorTypeInvalidInput
	default:
		errType = ErrorTypeAPI
	}
	return &LLMError{
		Type:       errType,
		Message:    fmt.Sprintf("status code %d", status),
		StatusCode: status,
	}
}
