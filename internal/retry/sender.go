// Package retry runs outbound mail operations under a bounded exponential
// backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"draftly/internal/apperror"
	"draftly/internal/logger"
)

type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultPolicy makes three attempts, waiting 1s then 2s between them.
var DefaultPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Second}

// Delay is the wait after failed attempt n (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return p.BaseDelay * time.Duration(1<<uint(attempt-1))
}

// ExhaustedError is returned once every attempt has failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("Failed to send email after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed. Remote 4xx
// responses and context cancellation are final.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var remoteErr *apperror.RemoteError
	if errors.As(err, &remoteErr) && remoteErr.IsClientError() {
		return false
	}
	return true
}

type SleepFunc func(ctx context.Context, d time.Duration) error

// Attempt describes the outcome of one try. Delay is the wait before the
// next try and is zero when no further try follows.
type Attempt struct {
	Number    int
	Max       int
	Err       error
	Retryable bool
	Delay     time.Duration
}

func (a Attempt) Succeeded() bool {
	return a.Err == nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type Sender struct {
	policy Policy
	sleep  SleepFunc
	logger *logger.Logger
}

func NewSender(policy Policy, log *logger.Logger) *Sender {
	return &Sender{policy: policy, sleep: sleepContext, logger: log}
}

// WithSleep replaces the wait function, mainly for tests.
func (s *Sender) WithSleep(sleep SleepFunc) *Sender {
	s.sleep = sleep
	return s
}

// Do runs fn until it succeeds, fails permanently, or the policy is
// exhausted. Observers see every attempt in order.
func (s *Sender) Do(ctx context.Context, operation string, fn func(ctx context.Context) error, observers ...func(Attempt)) error {
	notify := func(a Attempt) {
		for _, observe := range observers {
			observe(a)
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				s.logger.Infof("%s succeeded on attempt %d", operation, attempt)
			}
			notify(Attempt{Number: attempt, Max: s.policy.MaxAttempts})
			return nil
		}
		lastErr = err

		if !Retryable(err) {
			s.logger.Errorf("%s failed permanently on attempt %d: %v", operation, attempt, err)
			notify(Attempt{Number: attempt, Max: s.policy.MaxAttempts, Err: err})
			return err
		}
		if attempt == s.policy.MaxAttempts {
			notify(Attempt{Number: attempt, Max: s.policy.MaxAttempts, Err: err, Retryable: true})
			break
		}

		delay := s.policy.Delay(attempt)
		s.logger.Warnf("%s failed on attempt %d, retrying in %s: %v", operation, attempt, delay, err)
		notify(Attempt{Number: attempt, Max: s.policy.MaxAttempts, Err: err, Retryable: true, Delay: delay})
		if err := s.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s retry interrupted: %w", operation, err)
		}
	}

	return &ExhaustedError{Attempts: s.policy.MaxAttempts, Err: lastErr}
}
