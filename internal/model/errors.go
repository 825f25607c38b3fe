package model

import "errors"

// ErrorKind classifies failures produced by validation and the store.
type ErrorKind int

const (
	KindStore ErrorKind = iota
	KindValidation
	KindInvalidID
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidID:
		return "invalid_id"
	case KindNotFound:
		return "not_found"
	default:
		return "store"
	}
}

// Error represents a domain error for todos.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two domain errors of the same kind and message, so wrapped
// sentinels compare equal with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	ErrTodoNotFound = &Error{Kind: KindNotFound, Message: "Todo not found"}
	ErrInvalidID    = &Error{Kind: KindInvalidID, Message: "Invalid todo ID"}
	ErrTextRequired = &Error{Kind: KindValidation, Message: "Todo text is required"}
	ErrTextEmpty    = &Error{Kind: KindValidation, Message: "Todo text cannot be empty"}
)

// Validation wraps a request decoding failure.
func Validation(message string, err error) error {
	return &Error{Kind: KindValidation, Message: message, Err: err}
}

// StoreError wraps a persistence failure.
func StoreError(err error) error {
	return &Error{Kind: KindStore, Err: err}
}

// KindOf returns the kind of err. Errors that carry no kind are store errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}
