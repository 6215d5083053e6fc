package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
)

var (
	// ErrRateLimited marks a provider 429 response.
	ErrRateLimited = errors.New("llm: rate limited")
	// ErrUnavailable marks connectivity failures and gateway errors.
	ErrUnavailable = errors.New("llm: backend unavailable")
)

// IsTransient reports whether err is worth retrying after a cool-down.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable)
}

// classifyStatus maps an HTTP status to a transient sentinel, or nil when the
// status is not retryable.
func classifyStatus(status int) error {
	switch status {
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return nil
	}
}

// classify wraps err with a transient sentinel when it is a rate limit or a
// connectivity failure. A cancelled caller context is returned untouched.
func classify(ctx context.Context, backend string, status int, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", backend, err)
	}
	if kind := classifyStatus(status); kind != nil {
		return fmt.Errorf("%s: %w: %w", backend, kind, err)
	}
	if status == 0 && isConnectivity(err) {
		return fmt.Errorf("%s: %w: %w", backend, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", backend, err)
}

func isConnectivity(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
