package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/require"
)

func apiError(status int) *openai.Error {
	return &openai.Error{StatusCode: status}
}

func TestRetryerDo(t *testing.T) {
	t.Run("success on first try", func(t *testing.T) {
		r := newRetryer(3)
		calls := 0
		err := r.do(context.Background(), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("retries transient then succeeds", func(t *testing.T) {
		r := newRetryer(3)
		calls := 0
		err := r.do(context.Background(), func() error {
			calls++
			if calls < 3 {
				return apiError(http.StatusTooManyRequests)
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("non-retryable returns immediately", func(t *testing.T) {
		r := newRetryer(3)
		calls := 0
		err := r.do(context.Background(), func() error {
			calls++
			return apiError(http.StatusUnauthorized)
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("budget exhausted", func(t *testing.T) {
		r := newRetryer(2)
		calls := 0
		err := r.do(context.Background(), func() error {
			calls++
			return apiError(http.StatusServiceUnavailable)
		})
		require.Error(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("canceled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := newRetryer(5)
		calls := 0
		err := r.do(ctx, func() error {
			calls++
			cancel()
			return apiError(http.StatusInternalServerError)
		})
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, 1, calls)
	})

	t.Run("negative budget clamps to zero", func(t *testing.T) {
		r := newRetryer(-1)
		calls := 0
		err := r.do(context.Background(), func() error {
			calls++
			return apiError(http.StatusInternalServerError)
		})
		require.Error(t, err)
		require.Equal(t, 1, calls)
	})
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestRetryableError(t *testing.T) {
	require.False(t, retryableError(nil))
	require.False(t, retryableError(context.Canceled))
	require.False(t, retryableError(context.DeadlineExceeded))

	for _, status := range []int{408, 429, 500, 502, 503, 504} {
		require.True(t, retryableError(apiError(status)), "status %d", status)
	}
	for _, status := range []int{400, 401, 403, 404, 422} {
		require.False(t, retryableError(apiError(status)), "status %d", status)
	}

	var netErr net.Error = timeoutError{}
	require.True(t, retryableError(netErr))
	require.True(t, retryableError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	require.False(t, retryableError(errors.New("logic bug")))
}
