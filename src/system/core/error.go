package core

import "errors"

// Code identifies the failure class of a store operation.
type Code int

const (
	UnknownError Code = iota
	NoSuchPath
	NoObjectFound
	InvalidPath
	InvalidPathSubcomponent
	MalformedInput
	UnmatchedQuotes
	InvalidType
	TypeMismatch
	Timeout
	CapabilityMismatch
	CapabilityWriteMissing
	CapacityExceeded
	UnserializableType
	SerializationFunctionMissing
	MemoryAllocationFailed
)

func (c Code) String() string {
	switch c {
	case NoSuchPath:
		return "NoSuchPath"
	case NoObjectFound:
		return "NoObjectFound"
	case InvalidPath:
		return "InvalidPath"
	case InvalidPathSubcomponent:
		return "InvalidPathSubcomponent"
	case MalformedInput:
		return "MalformedInput"
	case UnmatchedQuotes:
		return "UnmatchedQuotes"
	case InvalidType:
		return "InvalidType"
	case TypeMismatch:
		return "TypeMismatch"
	case Timeout:
		return "Timeout"
	case CapabilityMismatch:
		return "CapabilityMismatch"
	case CapabilityWriteMissing:
		return "CapabilityWriteMissing"
	case CapacityExceeded:
		return "CapacityExceeded"
	case UnserializableType:
		return "UnserializableType"
	case SerializationFunctionMissing:
		return "SerializationFunctionMissing"
	case MemoryAllocationFailed:
		return "MemoryAllocationFailed"
	default:
		return "UnknownError"
	}
}

// Error is the value every fallible store operation returns through.
// No panic crosses the public surface.
type Error struct {
	Code    Code
	Message string
}

func (e Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}

// NewError builds an Error with the given code and message.
func NewError(code Code, message string) Error {
	return Error{Code: code, Message: message}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
