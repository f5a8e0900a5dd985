package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/scribe/server/internal/logger"
)

// trip policy for the provider circuit breaker
type BreakerSettings struct {
	ConsecutiveFailures uint32        // 0 disables the breaker
	OpenTimeout         time.Duration // how long the breaker stays open
}

// wraps a Gateway so a provider outage fails fast instead of stacking timeouts.
// cancellations and rate limits do not count as failures: the retry policy
// owns those
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerGateway(name string, next Gateway, settings BreakerSettings) *BreakerGateway {
	threshold := settings.ConsecutiveFailures

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) ||
				IsRateLimited(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerGateway{next: next, cb: cb}
}

func (b *BreakerGateway) Model() string {
	return b.next.Model()
}

func (b *BreakerGateway) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	return b.execute(func() (string, error) {
		return b.next.Complete(ctx, prompt, opts)
	})
}

func (b *BreakerGateway) Stream(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error) {
	return b.execute(func() (string, error) {
		return b.next.Stream(ctx, prompt, opts, onToken)
	})
}

func (b *BreakerGateway) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerGateway) execute(call func() (string, error)) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return call()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", ErrCircuitOpen
	}

	text, _ := out.(string)

	return text, err
}
