package completion

import (
	"errors"
	"fmt"
)

// Kind classifies a failed Send.
type Kind int

const (
	KindConfiguration Kind = iota + 1
	KindTransport
	KindParse
)

// Sentinels matched by errors.Is against an *Error of the same Kind.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrTransport     = errors.New("transport error")
	ErrParse         = errors.New("parse error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindTransport:
		return ErrTransport
	default:
		return ErrParse
	}
}

func (k Kind) String() string {
	return k.sentinel().Error()
}

// Error is returned by Client.Send.
type Error struct {
	Kind Kind
	// StatusCode is set for transport errors caused by a non-2xx response.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind.sentinel(), e.Err}
}
