package llm

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"careaudit-backend/internal/shared/metrics"
	"careaudit-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// RetryingOracle retries transient provider failures with exponential backoff.
// Client errors and cancellations are returned immediately.
type RetryingOracle struct {
	base       Oracle
	maxRetries uint64
	baseDelay  time.Duration
}

// NewRetryingOracle wraps base. maxRetries <= 0 disables retries.
func NewRetryingOracle(base Oracle, maxRetries int) *RetryingOracle {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryingOracle{base: base, maxRetries: uint64(maxRetries), baseDelay: retryBaseDelay}
}

func (r *RetryingOracle) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	attempt := 0
	op := func() error {
		attempt++
		resp, err := r.base.Generate(ctx, req)
		if err != nil {
			if !ShouldRetry(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = resp
		return nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = r.baseDelay
	expo.MaxInterval = 10 * r.baseDelay
	expo.MaxElapsedTime = 0
	bo := backoff.WithContext(backoff.WithMaxRetries(expo, r.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		metrics.IncOracleRetry()
		telemetry.Info("llm.retry", map[string]any{
			"attempt": attempt,
			"wait_ms": wait.Milliseconds(),
			"error":   err,
		})
	}
	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		return "", err
	}
	return out, nil
}

// ShouldRetry reports whether err looks transient.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrNotImplemented) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 429 || statusErr.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
