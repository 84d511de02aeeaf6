package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrCancelled    ErrorCode = "CANCELLED"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Declared package input errors
	ErrInputParse     ErrorCode = "INPUT_PARSE"
	ErrInputDuplicate ErrorCode = "INPUT_DUPLICATE"
	ErrInputInvalid   ErrorCode = "INPUT_INVALID"

	// Bridge resolution errors
	ErrBridgeNotFound      ErrorCode = "BRIDGE_NOT_FOUND"
	ErrBridgeNotExecutable ErrorCode = "BRIDGE_NOT_EXECUTABLE"
	ErrBridgeSetNotFound   ErrorCode = "BRIDGE_SET_NOT_FOUND"

	// Bridge execution errors
	ErrBridgeNonZeroExit      ErrorCode = "BRIDGE_NON_ZERO_EXIT"
	ErrBridgeTimeout          ErrorCode = "BRIDGE_TIMEOUT"
	ErrBridgeMalformedOutput  ErrorCode = "BRIDGE_MALFORMED_OUTPUT"
	ErrBridgeSpawnFailure     ErrorCode = "BRIDGE_SPAWN_FAILURE"
	ErrBridgeCancelled        ErrorCode = "BRIDGE_CANCELLED"
	ErrBridgeContractViolated ErrorCode = "BRIDGE_CONTRACT_VIOLATION"

	// Store errors
	ErrStoreOpen         ErrorCode = "STORE_OPEN"
	ErrStoreIO           ErrorCode = "STORE_IO"
	ErrStoreCorrupt      ErrorCode = "STORE_CORRUPT"
	ErrNamespaceConflict ErrorCode = "NAMESPACE_CONFLICT"

	// Link errors
	ErrLinkCreate   ErrorCode = "LINK_CREATE"
	ErrLinkConflict ErrorCode = "LINK_CONFLICT"
	ErrLinkRemove   ErrorCode = "LINK_REMOVE"

	// FileSystem errors
	ErrFileAccess ErrorCode = "FILE_ACCESS"
	ErrDirCreate  ErrorCode = "DIR_CREATE"
)

// Category groups error codes into the classes shown in reports.
type Category string

const (
	CategoryBridgeResolution Category = "BridgeResolutionError"
	CategoryBridgeExecution  Category = "BridgeExecutionError"
	CategoryStore            Category = "StoreError"
	CategoryLink             Category = "LinkError"
	CategoryConfig           Category = "ConfigError"
	CategoryOther            Category = "Error"
)

var categories = map[ErrorCode]Category{
	ErrBridgeNotFound:         CategoryBridgeResolution,
	ErrBridgeNotExecutable:    CategoryBridgeResolution,
	ErrBridgeSetNotFound:      CategoryBridgeResolution,
	ErrBridgeNonZeroExit:      CategoryBridgeExecution,
	ErrBridgeTimeout:          CategoryBridgeExecution,
	ErrBridgeMalformedOutput:  CategoryBridgeExecution,
	ErrBridgeSpawnFailure:     CategoryBridgeExecution,
	ErrBridgeCancelled:        CategoryBridgeExecution,
	ErrBridgeContractViolated: CategoryBridgeExecution,
	ErrStoreOpen:              CategoryStore,
	ErrStoreIO:                CategoryStore,
	ErrStoreCorrupt:           CategoryStore,
	ErrNamespaceConflict:      CategoryStore,
	ErrLinkCreate:             CategoryLink,
	ErrLinkConflict:           CategoryLink,
	ErrLinkRemove:             CategoryLink,
	ErrConfigLoad:             CategoryConfig,
	ErrConfigParse:            CategoryConfig,
	ErrConfigValid:            CategoryConfig,
	ErrInputParse:             CategoryConfig,
	ErrInputDuplicate:         CategoryConfig,
	ErrInputInvalid:           CategoryConfig,
}

// Error represents a structured error with code and details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(code, message)
	e.Wrapped = err
	return e
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not an *Error
func GetErrorCode(err error) ErrorCode {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not an *Error
func GetErrorDetails(err error) map[string]interface{} {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Details
	}
	return nil
}

// CategoryOf classifies err by the outermost error code it carries.
func CategoryOf(err error) Category {
	if c, ok := categories[GetErrorCode(err)]; ok {
		return c
	}
	return CategoryOther
}

// Message returns the human readable message of a coded error without the
// code prefix. Plain errors are returned via Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Wrapped != nil {
			return fmt.Sprintf("%s: %v", coded.Message, coded.Wrapped)
		}
		return coded.Message
	}
	return err.Error()
}
