// Package resilience wraps outbound calls to external services with
// bounded retries and a circuit breaker. Remote dependencies (model
// providers, the vector store, the message broker) fail independently
// of this process, and the pipeline degrades instead of propagating
// their failures.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrorClassification tells the executor how to handle a failed attempt.
type ErrorClassification struct {
	// Retry reattempts the call after a backoff delay.
	Retry bool
	// Record counts the failure toward tripping the breaker.
	Record bool
}

// Classifier maps an error to a classification. A nil classifier
// retries and records every error.
type Classifier func(err error) ErrorClassification

// Policy configures an Executor.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialBackoff is doubled after each failed attempt.
	InitialBackoff time.Duration
	// MaxBackoff caps the backoff growth.
	MaxBackoff time.Duration
	// BreakerFailures is the consecutive-failure count that opens the
	// breaker.
	BreakerFailures uint32
	// BreakerCooldown is how long the breaker stays open before probing.
	BreakerCooldown time.Duration

	Classify Classifier
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 200 * time.Millisecond
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 5 * time.Second
	}
	if p.BreakerFailures == 0 {
		p.BreakerFailures = 5
	}
	if p.BreakerCooldown <= 0 {
		p.BreakerCooldown = 30 * time.Second
	}
	if p.Classify == nil {
		p.Classify = func(error) ErrorClassification {
			return ErrorClassification{Retry: true, Record: true}
		}
	}
	return p
}

// Executor runs calls against a single remote service.
type Executor struct {
	name    string
	policy  Policy
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewExecutor builds an executor named after the service it guards.
func NewExecutor(name string, policy Policy, logger *slog.Logger) *Executor {
	policy = policy.withDefaults()
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name: name,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= policy.BreakerFailures
		},
		Timeout: policy.BreakerCooldown,
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !policy.Classify(err).Record
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"service", name, "from", from.String(), "to", to.String())
		},
	})
	return &Executor{name: name, policy: policy, breaker: breaker, logger: logger}
}

// Execute runs fn through the breaker, retrying per the policy. It
// returns the last error when all attempts fail, or the breaker error
// while the circuit is open.
func (e *Executor) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	backoff := e.policy.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= e.policy.MaxAttempts; attempt++ {
		_, err := e.breaker.Execute(func() (any, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			e.logger.Warn("circuit open, rejecting call",
				"service", e.name, "operation", operation)
			return err
		}
		if !e.policy.Classify(err).Retry || attempt == e.policy.MaxAttempts {
			return lastErr
		}

		e.logger.Warn("retrying after failure",
			"service", e.name, "operation", operation,
			"attempt", attempt, "backoff", backoff.String(), "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > e.policy.MaxBackoff {
			backoff = e.policy.MaxBackoff
		}
	}
	return lastErr
}
