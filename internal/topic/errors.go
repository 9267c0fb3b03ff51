package topic

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Error classes. Use errors.Is against these; the concrete errors below carry
// the details.
var (
	ErrTimeout            = errors.New("topic: timed out")
	ErrIO                 = errors.New("topic: i/o failure")
	ErrInvalidResponse    = errors.New("topic: invalid response")
	ErrUnexpectedResponse = errors.New("topic: unexpected response")
	ErrFieldParse         = errors.New("topic: field parse failed")
	ErrEnumConversion     = errors.New("topic: enum conversion failed")
	ErrQueryTooLong       = errors.New("topic: query too long")
)

// OpError is a transport failure during connect, write or read. It matches
// ErrTimeout when the deadline expired and ErrIO otherwise.
type OpError struct {
	Op   string
	Addr string
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("topic %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Timeout reports whether the operation hit the query deadline.
func (e *OpError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

func (e *OpError) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Timeout()
	case ErrIO:
		return !e.Timeout()
	}
	return false
}

// UnexpectedResponseError reports a well-formed reply of the wrong variant.
type UnexpectedResponseError struct {
	Response Response
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("topic: unexpected response %s", e.Response)
}

func (e *UnexpectedResponseError) Is(target error) bool {
	return target == ErrUnexpectedResponse
}

// FieldParseError reports a recognized status key whose value failed to parse.
type FieldParseError struct {
	Key   string
	Value string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("topic: status field %q=%q: %v", e.Key, e.Value, e.Err)
}

func (e *FieldParseError) Unwrap() error { return e.Err }

func (e *FieldParseError) Is(target error) bool {
	return target == ErrFieldParse
}

// EnumConversionError reports an enum value that matched no known literal.
type EnumConversionError struct {
	Kind  string
	Value string
}

func (e *EnumConversionError) Error() string {
	return fmt.Sprintf("topic: unknown %s %q", e.Kind, e.Value)
}

func (e *EnumConversionError) Is(target error) bool {
	return target == ErrEnumConversion
}

// IsTimeout reports whether err is a query timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
