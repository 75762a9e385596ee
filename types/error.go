package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the orchestration core.
type ErrorCode string

// Configuration and structural error codes. These are fatal at submission
// time: they abort a run before any task executes.
const (
	ErrInvalidDefinition ErrorCode = "INVALID_DEFINITION"
	ErrUnknownAgentType  ErrorCode = "UNKNOWN_AGENT_TYPE"
	ErrDependencyCycle   ErrorCode = "DEPENDENCY_CYCLE"
	ErrInvalidCrewConfig ErrorCode = "INVALID_CREW_CONFIG"
)

// Runtime and operational error codes. These are recovered locally via
// bounded retry or re-delegation; once the bound is exhausted the affected
// task surfaces as escalated rather than crashing the run.
const (
	ErrResourceExhausted        ErrorCode = "RESOURCE_EXHAUSTED"
	ErrDependencyNotSatisfied   ErrorCode = "DEPENDENCY_NOT_SATISFIED"
	ErrNoEligibleDelegate       ErrorCode = "NO_ELIGIBLE_DELEGATE"
	ErrInvalidSynthesisStrategy ErrorCode = "INVALID_SYNTHESIS_STRATEGY"
	ErrQuorumNotReached         ErrorCode = "QUORUM_NOT_REACHED"
	ErrHeartbeatTimeout         ErrorCode = "HEARTBEAT_TIMEOUT"
	ErrRestartLimitExceeded     ErrorCode = "RESTART_LIMIT_EXCEEDED"
	ErrRunCancelled             ErrorCode = "RUN_CANCELLED"
)

// Internal consistency error codes.
const (
	ErrInvalidTransition       ErrorCode = "INVALID_TRANSITION"
	ErrSnapshotVersionMismatch ErrorCode = "SNAPSHOT_VERSION_MISMATCH"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	TaskID    string    `json:"task_id,omitempty"`
	MemberID  string    `json:"member_id,omitempty"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithTask attaches the affected task id.
func (e *Error) WithTask(taskID string) *Error {
	e.TaskID = taskID
	return e
}

// WithMember attaches the affected crew member id.
func (e *Error) WithMember(memberID string) *Error {
	e.MemberID = memberID
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error, unwrapping as needed.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsFatal reports whether the error is a configuration/structural error that
// must abort a run at submission time.
func IsFatal(err error) bool {
	switch GetErrorCode(err) {
	case ErrInvalidDefinition, ErrUnknownAgentType, ErrDependencyCycle, ErrInvalidCrewConfig:
		return true
	default:
		return false
	}
}
