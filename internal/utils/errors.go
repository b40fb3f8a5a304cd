package utils

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeInternal        Code = "INTERNAL"

	// upstream collaborator failures
	CodeServerFault      Code = "SERVER_FAULT"
	CodeNetworkFailure   Code = "NETWORK_FAILURE"
	CodeProtocolMismatch Code = "PROTOCOL_MISMATCH"

	// identity provider outcomes
	CodeAuthCancelled       Code = "AUTH_CANCELLED"
	CodeInteractionRequired Code = "INTERACTION_REQUIRED"
)

// AppError is the unified error contract across layers.
type AppError struct {
	Code    Code
	Op      string // operation name, ex: "ChatService.Submit"
	Message string // safe message
	Err     error  // wrapped error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Op != "" && e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Op != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return "error"
	}
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost AppError in the chain, or "" when there is none.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	if errors.Is(err, ErrNotFound) {
		return CodeNotFound
	}
	return ""
}

// SafeMessage returns the message meant for end users.
func SafeMessage(err error) string {
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// FromStatus classifies a non-2xx upstream response.
func FromStatus(op string, status int, text string) error {
	msg := fmt.Sprintf("upstream returned %d %s", status, text)
	switch {
	case status == http.StatusNotFound:
		return E(CodeNotFound, op, "not found", nil)
	case status == http.StatusConflict:
		return E(CodeConflict, op, "already exists", nil)
	case status == http.StatusUnauthorized:
		return E(CodeUnauthorized, op, msg, nil)
	case status == http.StatusForbidden:
		return E(CodeForbidden, op, msg, nil)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return E(CodeInvalidArgument, op, msg, nil)
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		return E(CodeTimeout, op, msg, nil)
	case status >= 500:
		return E(CodeServerFault, op, msg, nil)
	default:
		return E(CodeProtocolMismatch, op, msg, nil)
	}
}

// Network wraps a transport level failure.
func Network(op string, err error) error {
	return E(CodeNetworkFailure, op, "upstream unreachable", err)
}

// Protocol wraps an unexpected response shape.
func Protocol(op, msg string, err error) error {
	return E(CodeProtocolMismatch, op, msg, err)
}

func HTTPStatus(err error) int {
	var ae *AppError
	if errors.As(err, &ae) {
		switch ae.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeUnauthorized, CodeAuthCancelled, CodeInteractionRequired:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeUnavailable, CodeNetworkFailure:
			return http.StatusServiceUnavailable
		case CodeTimeout:
			return http.StatusGatewayTimeout
		case CodeServerFault, CodeProtocolMismatch:
			return http.StatusBadGateway
		default:
			return http.StatusInternalServerError
		}
	}
	// fallback
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// Backward-compatible sentinel errors
var (
	ErrNotFound = errors.New("not found")
)
