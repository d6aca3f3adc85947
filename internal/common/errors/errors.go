// Package errors provides the standard error taxonomy used by the query
// pipeline, the HTTP surface and the BPMN job workers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeConfiguration          ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeProviderNotInitialized ErrorCode = "PROVIDER_NOT_INITIALIZED"
	ErrCodeRemoteServiceFailure   ErrorCode = "REMOTE_SERVICE_FAILURE"

	ErrCodeLLMUnavailable            ErrorCode = "LLM_UNAVAILABLE"
	ErrCodeLLMTimeout                ErrorCode = "LLM_TIMEOUT"
	ErrCodeQueryInterpretationFailed ErrorCode = "QUERY_INTERPRETATION_FAILED"
	ErrCodeErrorAnalysisFailed       ErrorCode = "ERROR_ANALYSIS_FAILED"
	ErrCodeCostOptimizationFailed    ErrorCode = "COST_OPTIMIZATION_FAILED"

	ErrCodeUnsupportedCommand ErrorCode = "UNSUPPORTED_COMMAND"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata returns e after attaching one metadata entry.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationError reports a missing or unusable credential set.
func NewConfigurationError(component, details string) *StandardError {
	return newError(ErrCodeConfiguration,
		fmt.Sprintf("%s is not configured", component), details, false)
}

// NewProviderNotInitializedError is recorded when a command targets a
// platform whose gateway was never constructed.
func NewProviderNotInitializedError(platform string) *StandardError {
	return newError(ErrCodeProviderNotInitialized,
		fmt.Sprintf("%s client not initialized", platform), "", false)
}

// NewRemoteServiceFailureError wraps a failed provider or model call. The
// original message is preserved in Details.
func NewRemoteServiceFailureError(service string, err error) *StandardError {
	return newError(ErrCodeRemoteServiceFailure,
		fmt.Sprintf("Remote service '%s' failed", service), errString(err), true)
}

func NewLLMUnavailableError() *StandardError {
	return newError(ErrCodeLLMUnavailable, "LLM service not initialized",
		"no language model API key configured", false)
}

func NewLLMTimeoutError(err error) *StandardError {
	return newError(ErrCodeLLMTimeout, "LLM request timeout", errString(err), true)
}

func NewQueryInterpretationFailedError(err error) *StandardError {
	return newError(ErrCodeQueryInterpretationFailed,
		"Failed to interpret query", errString(err), true)
}

func NewErrorAnalysisFailedError(err error) *StandardError {
	return newError(ErrCodeErrorAnalysisFailed, "Error analysis failed", errString(err), true)
}

func NewCostOptimizationFailedError(err error) *StandardError {
	return newError(ErrCodeCostOptimizationFailed,
		"Cost optimization failed", errString(err), true)
}

// NewUnsupportedCommandError is returned before any provider is contacted.
func NewUnsupportedCommandError(details string) *StandardError {
	return newError(ErrCodeUnsupportedCommand, "Unsupported command", details, false)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed,
		"Database connection error", errString(err), true)
}

func NewDatabaseInsertFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed,
		"Database insert operation failed", errString(err), true)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errString(err)), true)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// AsStandardError unwraps err into a *StandardError when one is in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 4. Error Conversion
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeConfiguration:             "CONFIGURATION_ERROR",
	ErrCodeProviderNotInitialized:    "PROVIDER_NOT_INITIALIZED",
	ErrCodeRemoteServiceFailure:      "REMOTE_SERVICE_FAILURE",
	ErrCodeLLMUnavailable:            "LLM_UNAVAILABLE",
	ErrCodeLLMTimeout:                "LLM_TIMEOUT",
	ErrCodeQueryInterpretationFailed: "QUERY_INTERPRETATION_FAILED",
	ErrCodeErrorAnalysisFailed:       "ERROR_ANALYSIS_FAILED",
	ErrCodeCostOptimizationFailed:    "COST_OPTIMIZATION_FAILED",
	ErrCodeUnsupportedCommand:        "UNSUPPORTED_COMMAND",
	ErrCodeInvalidInput:              "INVALID_INPUT",
	ErrCodeDatabaseConnectionFailed:  "DATABASE_CONNECTION_FAILED",
	ErrCodeDatabaseInsertFailed:      "DATABASE_INSERT_FAILED",
	ErrCodeNotificationSendFailed:    "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRemoteServiceFailure,
		ErrCodeQueryInterpretationFailed,
		ErrCodeErrorAnalysisFailed,
		ErrCodeCostOptimizationFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed:
		return 3

	case ErrCodeLLMTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// HTTPStatus maps an error code to the status returned by the HTTP API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnsupportedCommand, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeLLMUnavailable, ErrCodeProviderNotInitialized, ErrCodeConfiguration:
		return http.StatusServiceUnavailable
	case ErrCodeLLMTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeRemoteServiceFailure, ErrCodeQueryInterpretationFailed,
		ErrCodeErrorAnalysisFailed, ErrCodeCostOptimizationFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION") || strings.Contains(codeStr, "NOT_INITIALIZED"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "INTERPRETATION") ||
		strings.Contains(codeStr, "ANALYSIS") || strings.Contains(codeStr, "OPTIMIZATION"):
		return "AI"
	case strings.Contains(codeStr, "REMOTE"):
		return "PROVIDER"
	case strings.Contains(codeStr, "DATABASE"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "UNSUPPORTED"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
