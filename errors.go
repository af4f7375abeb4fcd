package soap

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrConfiguration is matched by every *ConfigurationError.
	ErrConfiguration = errors.New("invalid connector configuration")
	// ErrTransport is returned when the request could not be delivered or the response not read.
	ErrTransport = errors.New("transport failure")
	// ErrTimeout is returned when the read or connect timeout expired.
	ErrTimeout = errors.New("timeout")
	// ErrHTTPStatus is returned when the peer answered with an HTTP error status and no SOAP fault.
	ErrHTTPStatus = errors.New("http error status")
	// ErrDecode is returned when the response payload is not a usable SOAP envelope.
	ErrDecode = errors.New("response decode failure")
)

// ConfigurationError reports a parameter that failed validation. It is always
// raised before any network activity.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configErr(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Kind classifies an InvocationError. Callers are not expected to branch on
// it; it exists for logging and metrics.
type Kind int

const (
	KindTransport Kind = iota
	KindTimeout
	KindHTTPStatus
	KindFault
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http status"
	case KindFault:
		return "soap fault"
	case KindDecode:
		return "decode"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindTimeout:
		return ErrTimeout
	case KindHTTPStatus:
		return ErrHTTPStatus
	case KindFault:
		return ErrSoapFault
	case KindDecode:
		return ErrDecode
	}
	return ErrTransport
}

// InvocationError is the single failure kind surfaced once a call has been
// attempted. The underlying transport error is kept as text only.
type InvocationError struct {
	Kind     Kind
	Endpoint string
	// StatusCode is the HTTP status of the response, zero if none was received.
	StatusCode int
	// Fault is set when Kind is KindFault.
	Fault *Fault

	msg string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoke %s: %s: %s", e.Endpoint, e.Kind, e.msg)
}

// Unwrap exposes the package sentinel for the kind and, for faults, the *Fault.
func (e *InvocationError) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Fault != nil {
		errs = append(errs, e.Fault)
	}
	return errs
}

func newInvocationError(kind Kind, endpoint string, format string, args ...any) *InvocationError {
	return &InvocationError{Kind: kind, Endpoint: endpoint, msg: fmt.Sprintf(format, args...)}
}

// transportError maps an error from the HTTP client to an InvocationError.
func transportError(endpoint string, err error) *InvocationError {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return newInvocationError(kind, endpoint, "%s", err.Error())
}
