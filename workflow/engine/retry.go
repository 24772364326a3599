package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Azure/go-workflow-engine/workflow"
)

// BackoffStrategy names one of the three backoff shapes an action-level
// declaration may request.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy configures the retry/backoff middleware for one step.
type RetryPolicy struct {
	MaxAttempts int // retry_attempts + 1 total tries
	Strategy    BackoffStrategy
	Delay       time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy matches the specification's defaults: exponential
// backoff, 1s base delay, 30s cap.
func DefaultRetryPolicy(retryAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: retryAttempts + 1,
		Strategy:    BackoffExponential,
		Delay:       time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// PolicyFromConfig builds a RetryPolicy starting from DefaultRetryPolicy
// and overriding Strategy/Delay/MaxDelay from the step's own config map
// when present, per the action-level "backoff"/"delay_ms"/"max_delay_ms"
// declaration the specification allows. retry_attempts itself always
// comes from the step, not config, since every action must honor the
// same attempt count.
func PolicyFromConfig(retryAttempts int, config map[string]interface{}) RetryPolicy {
	policy := DefaultRetryPolicy(retryAttempts)

	if raw, ok := config["backoff"]; ok {
		if s, ok := raw.(string); ok {
			switch BackoffStrategy(s) {
			case BackoffFixed, BackoffLinear, BackoffExponential:
				policy.Strategy = BackoffStrategy(s)
			}
		}
	}
	if ms, ok := configMillis(config, "delay_ms"); ok {
		policy.Delay = ms
	}
	if ms, ok := configMillis(config, "max_delay_ms"); ok {
		policy.MaxDelay = ms
	}
	return policy
}

// configMillis reads key out of config as a millisecond duration,
// accepting whatever numeric type a YAML/JSON decode produced it as.
func configMillis(config map[string]interface{}, key string) (time.Duration, bool) {
	raw, ok := config[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return time.Duration(v) * time.Millisecond, true
	case int64:
		return time.Duration(v) * time.Millisecond, true
	case float64:
		return time.Duration(v) * time.Millisecond, true
	default:
		return 0, false
	}
}

// newBackOff builds the real cenkalti/backoff/v4 BackOff for policy.
// "linear" has no off-the-shelf equivalent in that library, so it is
// implemented here as a small custom BackOff multiplying the base delay
// by the attempt number, capped at MaxDelay — the one place this module
// still hand-rolls a backoff curve, everything else delegates to the
// library.
func newBackOff(policy RetryPolicy) backoff.BackOff {
	switch policy.Strategy {
	case BackoffFixed:
		return backoff.NewConstantBackOff(policy.Delay)
	case BackoffLinear:
		return &linearBackOff{base: policy.Delay, max: policy.MaxDelay}
	default:
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = policy.Delay
		eb.MaxInterval = policy.MaxDelay
		eb.MaxElapsedTime = 0 // bounded by MaxAttempts, not elapsed time
		eb.Reset()            // start the first interval at policy.Delay
		return eb
	}
}

type linearBackOff struct {
	base    time.Duration
	max     time.Duration
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++
	d := b.base * time.Duration(b.attempt)
	if b.max > 0 && d > b.max {
		d = b.max
	}
	return d
}

func (b *linearBackOff) Reset() { b.attempt = 0 }

// RetryOutcome records one retry attempt's result for event emission.
type RetryOutcome struct {
	Attempt int
	Result  workflow.ActionResult
}

// retryMiddleware retries the wrapped handler up to policy.MaxAttempts
// times on Failure, sleeping according to policy's backoff between
// attempts (capped at MaxDelay), honoring ctx cancellation during the
// sleep. onAttempt, if non-nil, is invoked after every attempt
// (including the final one) so the executor can emit StepFailed events
// with attempt metadata without the middleware needing to know about
// the event sink.
func retryMiddleware(policy RetryPolicy, onAttempt func(RetryOutcome)) StepMiddleware {
	return func(next StepHandler) StepHandler {
		return func(ctx context.Context, inv Invocation) workflow.ActionResult {
			bo := newBackOff(policy)
			var last workflow.ActionResult
			for attempt := 1; attempt <= maxInt(policy.MaxAttempts, 1); attempt++ {
				inv.Attempt = attempt
				last = next(ctx, inv)
				if onAttempt != nil {
					onAttempt(RetryOutcome{Attempt: attempt, Result: last})
				}
				if last.IsSuccess() {
					return last
				}
				if attempt == policy.MaxAttempts {
					break
				}
				wait := bo.NextBackOff()
				if wait == backoff.Stop {
					break
				}
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return workflow.Failure("timeout", nil)
				}
			}
			return last
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// timeoutMiddleware bounds a single attempt by d, converting
// context.DeadlineExceeded into the synthetic "timeout" Failure. A
// zero d disables the timeout.
func timeoutMiddleware(d time.Duration) StepMiddleware {
	return func(next StepHandler) StepHandler {
		return func(ctx context.Context, inv Invocation) workflow.ActionResult {
			if d <= 0 {
				return next(ctx, inv)
			}
			attemptCtx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			type outcome struct{ result workflow.ActionResult }
			done := make(chan outcome, 1)
			go func() { done <- outcome{next(attemptCtx, inv)} }()

			select {
			case o := <-done:
				return o.result
			case <-attemptCtx.Done():
				return workflow.Failure("timeout", nil)
			}
		}
	}
}
