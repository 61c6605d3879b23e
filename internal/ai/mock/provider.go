// Package mock provides a deterministic ai.Provider for development
// and tests. No network calls are made.
package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/promoforge/promoforge/internal/ai"
)

// tinyPNG is a valid 1x1 transparent PNG.
var tinyPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Provider implements ai.Provider with canned responses.
type Provider struct {
	// Delay simulates generation latency when set.
	Delay time.Duration

	// Err, when set, is returned from every call. Useful for testing
	// upstream-failure handling.
	Err error
}

// New creates a new mock provider.
func New() *Provider {
	return &Provider{}
}

// GenerateText returns a canned completion echoing the prompt.
func (p *Provider) GenerateText(ctx context.Context, params ai.TextParams) (*ai.TextResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}

	return &ai.TextResult{
		Content:      fmt.Sprintf("[mock completion]\n\n%s", params.Prompt),
		Model:        "mock",
		InputTokens:  int64(len(params.System)+len(params.Prompt)) / 4,
		OutputTokens: 64,
		Duration:     p.Delay,
	}, nil
}

// GenerateImage returns a 1x1 PNG.
func (p *Provider) GenerateImage(ctx context.Context, params ai.ImageParams) (*ai.ImageResult, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}

	return &ai.ImageResult{
		Data:        tinyPNG,
		ContentType: "image/png",
		Model:       "mock",
		Duration:    p.Delay,
	}, nil
}

func (p *Provider) wait(ctx context.Context) error {
	if p.Delay == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.Delay):
		return nil
	}
}
