package llm

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrUnavailable indicates the inference backend is not configured or
	// cannot be reached.
	ErrUnavailable = errors.New("llm backend unavailable")

	// ErrTimeout indicates the call exceeded its task timeout.
	ErrTimeout = errors.New("llm request timed out")

	// ErrEmptyOutput indicates the backend answered without any text.
	ErrEmptyOutput = errors.New("llm returned no output")
)

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var netErr *net.OpError
	return errors.As(err, &netErr)
}

// classify maps a transport error onto the package sentinels so callers can
// use errors.Is regardless of provider.
func classify(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case isConnectionError(err):
		return ErrUnavailable
	}
	return err
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	case errors.Is(err, ErrEmptyOutput):
		return "EMPTY"
	default:
		return "UNKNOWN"
	}
}
