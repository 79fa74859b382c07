package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeTimeout            ErrorCode = "COMMON_004"
	ErrCodeValidation         ErrorCode = "COMMON_005"
	ErrCodeSerialization      ErrorCode = "COMMON_006"
	ErrCodeDatabaseError      ErrorCode = "COMMON_007"
	ErrCodeCacheError         ErrorCode = "COMMON_008"
	ErrCodeExternalService    ErrorCode = "COMMON_009"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_010"
	ErrCodeNotImplemented     ErrorCode = "COMMON_011"
)

// Record pipeline error codes.
const (
	ErrCodeRecordMalformed   ErrorCode = "REC_001"
	ErrCodeRecordSchema      ErrorCode = "REC_002"
	ErrCodeRecordSourceError ErrorCode = "REC_003"
	ErrCodeRecordSinkError   ErrorCode = "REC_004"
)

// Annotator error codes.
const (
	ErrCodeAnnotatorUnavailable ErrorCode = "ANN_001"
	ErrCodeAnnotationFailed     ErrorCode = "ANN_002"
	ErrCodeAnnotatorParseError  ErrorCode = "ANN_003"
)

// Inference engine error codes.
const (
	ErrCodeEngineUnavailable  ErrorCode = "AI_001"
	ErrCodeInferenceFailed    ErrorCode = "AI_002"
	ErrCodeEngineInputInvalid ErrorCode = "AI_003"
)

// Messaging / source error codes.
const (
	ErrCodeSourceUnavailable ErrorCode = "SRC_001"
	ErrCodeSourceParseError  ErrorCode = "SRC_002"
)

// Aliases kept for call-site readability.
const (
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeUnknown      = ErrorCode("UNKNOWN")
	CodeOK           = ErrorCode("OK")
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusUnprocessableEntity,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeNotImplemented:     http.StatusNotImplemented,

	ErrCodeRecordMalformed:   http.StatusBadRequest,
	ErrCodeRecordSchema:      http.StatusUnprocessableEntity,
	ErrCodeRecordSourceError: http.StatusBadGateway,
	ErrCodeRecordSinkError:   http.StatusBadGateway,

	ErrCodeAnnotatorUnavailable: http.StatusServiceUnavailable,
	ErrCodeAnnotationFailed:     http.StatusInternalServerError,
	ErrCodeAnnotatorParseError:  http.StatusBadGateway,

	ErrCodeEngineUnavailable:  http.StatusServiceUnavailable,
	ErrCodeInferenceFailed:    http.StatusInternalServerError,
	ErrCodeEngineInputInvalid: http.StatusBadRequest,

	ErrCodeSourceUnavailable: http.StatusServiceUnavailable,
	ErrCodeSourceParseError:  http.StatusBadGateway,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:           "internal error",
	ErrCodeBadRequest:         "bad request",
	ErrCodeNotFound:           "resource not found",
	ErrCodeTimeout:            "request timeout",
	ErrCodeValidation:         "validation failed",
	ErrCodeSerialization:      "serialization failed",
	ErrCodeDatabaseError:      "database error",
	ErrCodeCacheError:         "cache error",
	ErrCodeExternalService:    "external service error",
	ErrCodeServiceUnavailable: "service unavailable",
	ErrCodeNotImplemented:     "not implemented",

	ErrCodeRecordMalformed:   "malformed record",
	ErrCodeRecordSchema:      "record failed schema validation",
	ErrCodeRecordSourceError: "record source error",
	ErrCodeRecordSinkError:   "record sink error",

	ErrCodeAnnotatorUnavailable: "annotator unavailable",
	ErrCodeAnnotationFailed:     "annotation failed",
	ErrCodeAnnotatorParseError:  "failed to parse annotator response",

	ErrCodeEngineUnavailable:  "inference engine unavailable",
	ErrCodeInferenceFailed:    "inference failed",
	ErrCodeEngineInputInvalid: "invalid input for inference engine",

	ErrCodeSourceUnavailable: "source unavailable",
	ErrCodeSourceParseError:  "failed to parse source payload",
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 0 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}
