package cacheerrors

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration      = errors.New("smartcache: invalid configuration")
	ErrWrongType          = errors.New("smartcache: operation against a key holding the wrong kind of value")
	ErrTransport          = errors.New("smartcache: transport error")
	ErrSerialization      = errors.New("smartcache: serialization error")
	ErrUnsupportedCommand = errors.New("smartcache: unsupported command")
	ErrInvalidArgument    = errors.New("smartcache: invalid argument")
	ErrVariadicRejected   = errors.New("smartcache: variadic arguments rejected by server")
)

// TransportError wraps a failed store call. errors.Is(err, ErrTransport) holds for it.
type TransportError struct {
	Op   string
	Node string
	Err  error
}

func (e *TransportError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Node, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Configf builds an ErrConfiguration with context.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
