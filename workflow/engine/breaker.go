package engine

import (
	"context"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/Azure/go-workflow-engine/workflow"
)

// BreakerConfig tunes the optional per-action-name circuit breaker.
// Disabled unless an Engine is built WithCircuitBreaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32
}

// breakerRegistry lazily creates one gobreaker.CircuitBreaker per action
// reference so a run of failures against one action doesn't trip the
// breaker for unrelated actions.
type breakerRegistry struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*gobreaker.CircuitBreaker
}

func newBreakerRegistry(cfg BreakerConfig) *breakerRegistry {
	return &breakerRegistry{cfg: cfg, breakers: map[string]*gobreaker.CircuitBreaker{}}
}

func (r *breakerRegistry) get(actionRef string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[actionRef]; ok {
		return b
	}
	threshold := r.cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: actionRef,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
	r.breakers[actionRef] = b
	return b
}

// circuitBreakerMiddleware wraps action invocation per action name:
// once a breaker opens, subsequent invocations fail fast with a
// "circuit open" Failure until the cooldown elapses. That Failure
// still flows through the normal retry/compensation path; this is
// additive resilience, not a replacement for it.
func circuitBreakerMiddleware(registry *breakerRegistry) StepMiddleware {
	return func(next StepHandler) StepHandler {
		return func(ctx context.Context, inv Invocation) workflow.ActionResult {
			cb := registry.get(inv.Step.ActionRef())
			result, err := cb.Execute(func() (interface{}, error) {
				r := next(ctx, inv)
				if r.IsFailure() {
					return r, errActionFailure
				}
				return r, nil
			})
			if err != nil {
				if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
					return workflow.Failure("circuit open for action "+inv.Step.ActionRef(), nil)
				}
				// errActionFailure: result still carries the real Failure.
			}
			if result == nil {
				return workflow.Failure("circuit breaker: no result", nil)
			}
			return result.(workflow.ActionResult)
		}
	}
}

var errActionFailure = actionFailureSentinel{}

type actionFailureSentinel struct{}

func (actionFailureSentinel) Error() string { return "action reported failure" }
