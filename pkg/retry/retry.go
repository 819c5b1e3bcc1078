package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config holds retry configuration
type Config struct {
	MaxRetries     int           // Maximum number of retry attempts after the first call
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration
	Multiplier     float64       // Backoff multiplier (exponential)

	// RetryIf decides whether an error is worth another attempt.
	// Nil means IsRetryable.
	RetryIf func(error) bool
}

// DefaultConfig returns defaults sized for a one-shot CLI invocation
func DefaultConfig() Config {
	return Config{
		MaxRetries:     2,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		Multiplier:     2.0,
	}
}

// MaxElapsed returns the total backoff Do can sleep for with this config,
// excluding the time spent inside fn.
func (c Config) MaxElapsed() time.Duration {
	var total time.Duration
	backoff := c.InitialBackoff
	for i := 0; i < c.MaxRetries; i++ {
		total += backoff
		backoff = c.next(backoff)
	}
	return total
}

func (c Config) next(backoff time.Duration) time.Duration {
	mult := c.Multiplier
	if mult < 1 {
		mult = 1
	}
	backoff = time.Duration(float64(backoff) * mult)
	if c.MaxBackoff > 0 && backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}
	return backoff
}

// Do executes fn with exponential backoff retries.
// Errors rejected by RetryIf are returned immediately without wrapping.
func Do(ctx context.Context, config Config, fn func(ctx context.Context) error) error {
	retryIf := config.RetryIf
	if retryIf == nil {
		retryIf = IsRetryable
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryIf(err) {
			return err
		}

		lastErr = err

		// Don't sleep after last attempt
		if attempt == config.MaxRetries {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		backoff = config.next(backoff)
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", config.MaxRetries, lastErr)
}

// temporary is implemented by errors that know whether they are transient
type temporary interface {
	Temporary() bool
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	retryableErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"resource temporarily unavailable",
		"broken pipe",
		"eof",
	}

	for _, retryable := range retryableErrors {
		if strings.Contains(errStr, retryable) {
			return true
		}
	}

	return false
}
