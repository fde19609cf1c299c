package triage

import "errors"

// Kind classifies a failure surfaced to callers.
type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindInvalidFormat
	KindUnauthenticated
	KindInvalidCredentials
	KindDuplicateUser
	KindUnknownUser
	KindAIService
	KindEmptyAIResponse
	KindUpstreamLookup
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "InvalidInput"
	case KindInvalidFormat:
		return "InvalidFormat"
	case KindUnauthenticated:
		return "Unauthenticated"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindDuplicateUser:
		return "DuplicateUser"
	case KindUnknownUser:
		return "UnknownUser"
	case KindAIService:
		return "AIServiceError"
	case KindEmptyAIResponse:
		return "EmptyAIResponse"
	case KindUpstreamLookup:
		return "UpstreamLookupError"
	default:
		return "Internal"
	}
}

// Error is a classified failure. Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds a classified error wrapping err, which may be nil.
func Errorf(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of a classified error, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal error"
}
