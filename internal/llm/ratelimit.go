package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimited wraps a provider with a token bucket shared by all calls.
type RateLimited struct {
	generator Generator
	streamer  ChatStreamer
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewRateLimited wraps g. streamer may be nil when g does not chat.
func NewRateLimited(g Generator, streamer ChatStreamer, requestsPerMinute int, logger *zap.Logger) *RateLimited {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	every := rate.Limit(float64(requestsPerMinute) / 60)
	return &RateLimited{
		generator: g,
		streamer:  streamer,
		limiter:   rate.NewLimiter(every, requestsPerMinute),
		logger:    logger,
	}
}

func (p *RateLimited) wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		p.logger.Warn("Rate limit wait cancelled", zap.Error(err))
		return fmt.Errorf("rate limit wait cancelled: %w", err)
	}
	return nil
}

func (p *RateLimited) Generate(ctx context.Context, req Request) (string, error) {
	if err := p.wait(ctx); err != nil {
		return "", err
	}
	return p.generator.Generate(ctx, req)
}

func (p *RateLimited) Search(ctx context.Context, prompt string) (*SearchResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return p.generator.Search(ctx, prompt)
}

func (p *RateLimited) StreamChat(ctx context.Context, system string, history []Turn, message string, onChunk func(string)) error {
	if p.streamer == nil {
		return fmt.Errorf("provider does not support chat")
	}
	if err := p.wait(ctx); err != nil {
		return err
	}
	return p.streamer.StreamChat(ctx, system, history, message, onChunk)
}
