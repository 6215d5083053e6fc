package llm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("boom")

	tests := []struct {
		name      string
		status    int
		err       error
		want      error
		transient bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, err: boom, want: ErrRateLimited, transient: true},
		{name: "bad gateway", status: http.StatusBadGateway, err: boom, want: ErrUnavailable, transient: true},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, err: boom, want: ErrUnavailable, transient: true},
		{name: "bad request", status: http.StatusBadRequest, err: boom},
		{name: "unauthorized", status: http.StatusUnauthorized, err: boom},
		{name: "transport", err: &url.Error{Op: "Post", URL: "http://x", Err: boom}, want: ErrUnavailable, transient: true},
		{name: "timeout", err: context.DeadlineExceeded, want: ErrUnavailable, transient: true},
		{name: "plain", err: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := classify(ctx, "test", tt.status, tt.err)
			assert.ErrorIs(t, got, tt.err)
			if tt.want != nil {
				assert.ErrorIs(t, got, tt.want)
			}
			assert.Equal(t, tt.transient, IsTransient(got))
		})
	}
}

func TestClassifyNeverRetriesCancelledCaller(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := classify(ctx, "test", http.StatusTooManyRequests, context.Canceled)
	assert.False(t, IsTransient(got))
	assert.ErrorIs(t, got, context.Canceled)
}
