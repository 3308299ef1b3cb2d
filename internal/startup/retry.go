package startup

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RetryConfig configures exponential backoff for upstream passes.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Multiplier   float64
}

// DefaultRetryConfig returns sensible defaults for network retry.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 2 * time.Second,
		MaxDelay:     time.Minute,
		MaxAttempts:  3,
		Multiplier:   2.0,
	}
}

// isNetworkError checks if an error is likely due to network
// unavailability. Passes are idempotent, so retrying a half-applied pass
// is safe; anything non-transient fails the pass immediately.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	if errors.As(err, &netErr) || errors.As(err, &dnsErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	indicators := []string{
		"connection refused",
		"no such host",
		"timeout",
		"network is unreachable",
		"no route to host",
		"dial tcp",
		"connection reset",
	}
	for _, indicator := range indicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// withRetry executes fn with exponential backoff for network errors only.
func withRetry(ctx context.Context, name string, cfg RetryConfig, logger zerolog.Logger, fn func() error) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				logger.Info().Str("pass", name).Int("attempt", attempt).Msg("Pass succeeded after retry")
			}
			return nil
		}

		lastErr = err

		if !isNetworkError(err) {
			return err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Warn().
			Err(err).
			Str("pass", name).
			Int("attempt", attempt).
			Dur("nextRetryIn", delay).
			Msg("Network error, will retry pass")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return lastErr
}
