// Package common defines the error taxonomy shared by the stores, the session
// manager and the transport layers. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
)

// Kind classifies a service error. Transports map kinds to their own status
// codes; nothing below the transport layer knows about HTTP.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuth
	KindInvalidToken
	KindTokenExpired
	KindUnauthenticated
)

var kindNames = map[Kind]string{
	KindInternal:        "internal",
	KindValidation:      "validation",
	KindConflict:        "conflict",
	KindAuth:            "auth",
	KindInvalidToken:    "invalid_token",
	KindTokenExpired:    "token_expired",
	KindUnauthenticated: "unauthenticated",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is a classified service error.
//
// Message is safe to show to clients. Op names the operation that failed and
// Cause keeps the underlying error for logs; neither is sent over the wire.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by kind. A token-expired error also matches KindInvalidToken.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind == e.Kind {
		return true
	}
	return t.Kind == KindInvalidToken && e.Kind == KindTokenExpired
}

// Sentinels for errors.Is.
var (
	ErrInternal        = &Error{Kind: KindInternal, Message: "internal error"}
	ErrValidation      = &Error{Kind: KindValidation, Message: "validation error"}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict"}
	ErrAuth            = &Error{Kind: KindAuth, Message: "invalid credentials"}
	ErrInvalidToken    = &Error{Kind: KindInvalidToken, Message: "invalid token"}
	ErrTokenExpired    = &Error{Kind: KindTokenExpired, Message: "token expired"}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "unauthenticated"}
)

// New creates a classified error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap creates a classified error that keeps cause for logging.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message of err. Unclassified errors
// never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return InternalMessage
}

// InternalMessage is what clients see for any unclassified failure.
const InternalMessage = "Internal server error"
