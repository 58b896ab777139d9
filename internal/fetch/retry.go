package fetch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxAttempts = 5
	DefaultDelay       = 2 * time.Second
)

type status int

const (
	statusReady status = iota
	statusNotReady
	statusFailed
)

// Outcome is the answer of a lazily computed resource: the data, a
// "still computing" signal, or a failure.
type Outcome[T any] struct {
	status status
	data   []T
	err    error
}

func Ready[T any](data []T) Outcome[T] {
	return Outcome[T]{status: statusReady, data: data}
}

func NotReady[T any]() Outcome[T] {
	return Outcome[T]{status: statusNotReady}
}

func Failed[T any](err error) Outcome[T] {
	return Outcome[T]{status: statusFailed, err: err}
}

// Retrier polls a lazily computed resource with a linear backoff.
type Retrier struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// NewRetrier returns a Retrier with the default budget of 5 attempts and a 2s
// backoff step.
func NewRetrier() Retrier {
	return Retrier{MaxAttempts: DefaultMaxAttempts, Delay: DefaultDelay, Sleep: SleepContext}
}

// Attempts is the attempt budget Compute uses. Values below 1 fall back to
// DefaultMaxAttempts.
func (r Retrier) Attempts() int {
	if r.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return r.MaxAttempts
}

// Compute calls fn until it reports Ready, fails, or the attempt budget runs
// out. Attempt i waits Delay*(i+1) before the next one; no wait follows the
// last attempt. An exhausted budget yields an empty, non-nil slice and no
// error.
func Compute[T any](ctx context.Context, r Retrier, fn func(ctx context.Context) Outcome[T]) ([]T, error) {
	attempts := r.Attempts()
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	for i := 0; i < attempts; i++ {
		out := fn(ctx)
		switch out.status {
		case statusReady:
			if out.data == nil {
				return []T{}, nil
			}
			return out.data, nil
		case statusFailed:
			return nil, out.err
		}

		if i == attempts-1 {
			break
		}
		wait := r.Delay * time.Duration(i+1)
		log.Debug().Int("attempt", i+1).Dur("wait", wait).Msg("Resource not ready, retrying")
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	log.Warn().Int("attempts", attempts).Msg("Resource still not ready, continuing with empty data")
	return []T{}, nil
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
