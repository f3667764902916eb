package model

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced to callers.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindAuthentication
	KindNetwork
	KindStorage
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindAuthentication:
		return "authentication"
	case KindNetwork:
		return "network"
	case KindStorage:
		return "storage"
	case KindValidation:
		return "validation"
	}
	return "unknown"
}

// Error carries a Kind alongside the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match any *Error of the same Kind, e.g.
// errors.Is(err, model.ErrStorage).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrConfiguration  = &Error{Kind: KindConfiguration}
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrStorage        = &Error{Kind: KindStorage}
	ErrValidation     = &Error{Kind: KindValidation}
)

func ConfigurationError(op string, err error) error {
	return &Error{Kind: KindConfiguration, Op: op, Err: err}
}

func AuthenticationError(op string, err error) error {
	return &Error{Kind: KindAuthentication, Op: op, Err: err}
}

func NetworkError(op string, err error) error {
	return &Error{Kind: KindNetwork, Op: op, Err: err}
}

func StorageError(op string, err error) error {
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

func ValidationError(op string, err error) error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
