package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess              Code = 0
	CodeInternal             Code = 1
	CodeUsage                Code = 2
	CodeUnsupportedTransport Code = 10
	CodeConnection           Code = 11
	CodeMalformedPath        Code = 12
	CodeUnrecognizedUnit     Code = 13
	CodeRPCUnavailable       Code = 14
	CodeSigningRejected      Code = 15
	CodeFirmwareHeader       Code = 16
	CodeDeviceProtocol       Code = 17
	CodeUnsupported          Code = 18
	CodeUnavailable          Code = 19
	CodeAuth                 Code = 20
	CodeRateLimited          Code = 21
	CodeBlocked              Code = 22
)

var kinds = map[Code]string{
	CodeInternal:             "internal",
	CodeUsage:                "usage",
	CodeUnsupportedTransport: "unsupported_transport",
	CodeConnection:           "connection_failure",
	CodeMalformedPath:        "malformed_path",
	CodeUnrecognizedUnit:     "unrecognized_unit",
	CodeRPCUnavailable:       "rpc_unavailable",
	CodeSigningRejected:      "signing_rejected",
	CodeFirmwareHeader:       "firmware_header_mismatch",
	CodeDeviceProtocol:       "device_protocol_error",
	CodeUnsupported:          "unsupported",
	CodeUnavailable:          "unavailable",
	CodeAuth:                 "auth_error",
	CodeRateLimited:          "rate_limited",
	CodeBlocked:              "command_blocked",
}

// Kind returns the snake_case name of the code.
func (c Code) Kind() string {
	if k, ok := kinds[c]; ok {
		return k
	}
	return "error"
}

// Error is a typed CLI error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	cliErr, ok := As(err)
	return ok && cliErr.Code == code
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if cliErr, ok := As(err); ok {
		return int(cliErr.Code)
	}
	return int(CodeInternal)
}

// DeviceFailure is a structured failure reported by the device itself.
type DeviceFailure struct {
	Kind    string
	Message string
}

func (f *DeviceFailure) Error() string {
	if f.Kind == "" {
		return f.Message
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Cancelled reports whether the user refused the action on the device.
func (f *DeviceFailure) Cancelled() bool {
	return f.Kind == "ActionCancelled" || f.Kind == "PinCancelled"
}

// Rejected turns a device cancellation into a signing rejection. Any other
// error is returned unchanged.
func Rejected(err error) error {
	var failure *DeviceFailure
	if errors.As(err, &failure) && failure.Cancelled() {
		return Wrap(CodeSigningRejected, "rejected on device", failure)
	}
	return err
}
