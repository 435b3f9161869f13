package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("model provider temporarily unavailable")

// BreakerConfig holds configuration for the provider circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig trips at 80% failures over at least five calls.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// ObserveFunc is told about every call that went through the breaker.
type ObserveFunc func(op string, err error, elapsed time.Duration)

// Breaker stops calling a failing provider for a while instead of letting
// every request wait out its retries.
type Breaker struct {
	generator Generator
	streamer  ChatStreamer
	cb        *gobreaker.CircuitBreaker
	observe   ObserveFunc
	logger    *zap.Logger
}

// NewBreaker wraps g and streamer. streamer and observe may be nil.
func NewBreaker(g Generator, streamer ChatStreamer, cfg BreakerConfig, observe ObserveFunc, logger *zap.Logger) *Breaker {
	if observe == nil {
		observe = func(string, error, time.Duration) {}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// a cancelled request or unusable answer says nothing about provider health
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, ErrMalformedResponse)
		},
	})
	return &Breaker{generator: g, streamer: streamer, cb: cb, observe: observe, logger: logger}
}

// State reports the breaker state ("closed", "open", "half-open").
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) execute(op string, fn func() (interface{}, error)) (interface{}, error) {
	start := time.Now()
	out, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("Model call rejected by circuit breaker", zap.String("op", op), zap.Error(err))
		err = fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	b.observe(op, err, time.Since(start))
	return out, err
}

func (b *Breaker) Generate(ctx context.Context, req Request) (string, error) {
	out, err := b.execute("generate", func() (interface{}, error) {
		return b.generator.Generate(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (b *Breaker) Search(ctx context.Context, prompt string) (*SearchResult, error) {
	out, err := b.execute("search", func() (interface{}, error) {
		return b.generator.Search(ctx, prompt)
	})
	if err != nil {
		return nil, err
	}
	return out.(*SearchResult), nil
}

func (b *Breaker) StreamChat(ctx context.Context, system string, history []Turn, message string, onChunk func(string)) error {
	if b.streamer == nil {
		return fmt.Errorf("provider does not support chat")
	}
	_, err := b.execute("chat", func() (interface{}, error) {
		return nil, b.streamer.StreamChat(ctx, system, history, message, onChunk)
	})
	return err
}
