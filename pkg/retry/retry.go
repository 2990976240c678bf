// Package retry повторяет операции с задержкой между попытками.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// RetryableFunc - функция которую можно retry
type RetryableFunc func(ctx context.Context) error

// permanentError - ошибка, после которой повторять бессмысленно
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку как неповторяемую
// Do вернет исходную ошибку без дополнительных попыток
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retryer выполняет retry логику
type Retryer struct {
	config Config
}

// NewRetryer создает новый Retryer
func NewRetryer(config Config) (*Retryer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry config: %w", err)
	}
	return &Retryer{config: config}, nil
}

// Do выполняет функцию с retry
func (r *Retryer) Do(ctx context.Context, fn RetryableFunc) error {
	if !r.config.Enabled {
		return unwrapPermanent(fn(ctx))
	}

	attempts := 0

	for {
		attempts++

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		if r.config.MaxAttempts > 0 && attempts >= r.config.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", r.config.MaxAttempts, err)
		}

		if ctx.Err() != nil {
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		delay := r.calculateDelay(attempts)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempts, err, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}
}

func unwrapPermanent(err error) error {
	var perm *permanentError
	if errors.As(err, &perm) {
		return perm.err
	}
	return err
}

// calculateDelay вычисляет задержку для текущей попытки
func (r *Retryer) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch r.config.BackoffStrategy {
	case BackoffConstant:
		delay = r.config.InitialDelay

	case BackoffLinear:
		// Linear: delay = initial * attempt
		delay = r.config.InitialDelay * time.Duration(attempt)

	case BackoffExponential:
		// Exponential: delay = initial * multiplier^(attempt-1)
		multiplier := math.Pow(r.config.BackoffMultiplier, float64(attempt-1))
		delay = time.Duration(float64(r.config.InitialDelay) * multiplier)

	default:
		delay = r.config.InitialDelay
	}

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter > 0 {
		jitter := time.Duration(float64(delay) * r.config.Jitter * (rand.Float64()*2 - 1))
		delay += jitter
		if delay < 0 {
			delay = r.config.InitialDelay
		}
	}

	return delay
}
