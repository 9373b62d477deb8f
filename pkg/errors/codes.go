package errors

import (
	"net/http"
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// The prefix before the first underscore names the owning module.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common Error Codes
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_008"
	ErrCodeTimeout            ErrorCode = "COMMON_009"
	ErrCodeValidation         ErrorCode = "COMMON_010"
	ErrCodeSerialization      ErrorCode = "COMMON_011"
	ErrCodeDatabaseError      ErrorCode = "COMMON_012"
	ErrCodeCacheError         ErrorCode = "COMMON_013"
	ErrCodeExternalService    ErrorCode = "COMMON_014"
	ErrCodeConcurrency        ErrorCode = "COMMON_017"
)

const (
	CodeOK      = ErrorCode("OK")
	CodeUnknown = ErrorCode("UNKNOWN")
)

// Billing Module Error Codes
const (
	ErrCodeStoreNotFound     ErrorCode = "BILL_001"
	ErrCodeRenterNotFound    ErrorCode = "BILL_002"
	ErrCodeNoCoverage        ErrorCode = "BILL_003"
	ErrCodeAlreadyGenerated  ErrorCode = "BILL_004"
	ErrCodeInvoiceConflict   ErrorCode = "BILL_005"
	ErrCodeInvoiceNotFound   ErrorCode = "BILL_006"
	ErrCodeInvalidPeriod     ErrorCode = "BILL_007"
	ErrCodeInvalidAmount     ErrorCode = "BILL_008"
)

// Notification Module Error Codes
const (
	ErrCodeNotificationNotFound ErrorCode = "NTF_001"
	ErrCodeChannelFailure       ErrorCode = "NTF_002"
	ErrCodeRecipientUnresolved  ErrorCode = "NTF_003"
	ErrCodeInvalidPhone         ErrorCode = "NTF_004"
	ErrCodeEmployeeNotFound     ErrorCode = "NTF_005"
)

// Configuration Error Codes
const (
	ErrCodeConfigMissing ErrorCode = "CFG_001"
	ErrCodeConfigInvalid ErrorCode = "CFG_002"
)

// ErrorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var ErrorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeConcurrency:        http.StatusConflict,

	ErrCodeStoreNotFound:    http.StatusNotFound,
	ErrCodeRenterNotFound:   http.StatusNotFound,
	ErrCodeNoCoverage:       http.StatusUnprocessableEntity,
	ErrCodeAlreadyGenerated: http.StatusOK,
	ErrCodeInvoiceConflict:  http.StatusConflict,
	ErrCodeInvoiceNotFound:  http.StatusNotFound,
	ErrCodeInvalidPeriod:    http.StatusBadRequest,
	ErrCodeInvalidAmount:    http.StatusBadRequest,

	ErrCodeNotificationNotFound: http.StatusNotFound,
	ErrCodeChannelFailure:       http.StatusBadGateway,
	ErrCodeRecipientUnresolved:  http.StatusUnprocessableEntity,
	ErrCodeInvalidPhone:         http.StatusBadRequest,
	ErrCodeEmployeeNotFound:     http.StatusNotFound,

	ErrCodeConfigMissing: http.StatusInternalServerError,
	ErrCodeConfigInvalid: http.StatusInternalServerError,
}

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	ErrCodeInternal:             "internal server error",
	ErrCodeBadRequest:           "bad request",
	ErrCodeNotFound:             "resource not found",
	ErrCodeConflict:             "resource conflict",
	ErrCodeDatabaseError:        "database error",
	ErrCodeConcurrency:          "concurrent modification",
	ErrCodeStoreNotFound:        "unknown store",
	ErrCodeRenterNotFound:       "store has no renter",
	ErrCodeNoCoverage:           "no contract covers the period",
	ErrCodeAlreadyGenerated:     "invoice already generated for the period",
	ErrCodeInvoiceConflict:      "duplicate invoice identity",
	ErrCodeInvoiceNotFound:      "invoice not found",
	ErrCodeNotificationNotFound: "notification not found",
	ErrCodeChannelFailure:       "messaging channel failed",
	ErrCodeConfigMissing:        "required configuration is missing",
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

//Personal.AI order the ending
