// Package ai defines the provider interface for AI-generated marketing
// content. Implementations live in subpackages: gateway (OpenAI-compatible
// chat-completions gateway) and mock (deterministic, for development and
// tests).
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider generates marketing text and product images.
type Provider interface {
	// GenerateText produces a text completion for the given prompts.
	GenerateText(ctx context.Context, params TextParams) (*TextResult, error)

	// GenerateImage produces a product image for the given prompt.
	// When BaseImage is set, the provider refines the uploaded image
	// instead of generating from scratch.
	GenerateImage(ctx context.Context, params ImageParams) (*ImageResult, error)
}

// TextParams contains parameters for a text generation.
type TextParams struct {
	System string // system prompt framing the task
	Prompt string // user prompt with the product details
}

// TextResult contains a generated text completion.
type TextResult struct {
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
	Duration     time.Duration
}

// ImageParams contains parameters for an image generation.
type ImageParams struct {
	Prompt      string
	BaseImage   []byte // optional source image to refine
	ContentType string // MIME type of BaseImage when set
}

// ImageResult contains a generated image.
type ImageResult struct {
	Data        []byte
	ContentType string
	Model       string
	Duration    time.Duration
}

// ProviderConfig contains common retry/timeout settings.
type ProviderConfig struct {
	MaxRetries     int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
}

// Sentinel errors providers return so callers can branch on the cause.
var (
	// ErrRateLimited indicates the upstream rejected the call for rate
	// or payment reasons; retrying immediately will not help.
	ErrRateLimited = errors.New("ai: rate limited")

	// ErrUnavailable indicates the upstream failed or timed out after
	// retries were exhausted.
	ErrUnavailable = errors.New("ai: service unavailable")

	// ErrEmptyResult indicates the upstream answered but produced no
	// usable content.
	ErrEmptyResult = errors.New("ai: empty result")
)

// WrapError adds operation context to a provider error.
func WrapError(op string, err error) error {
	return fmt.Errorf("ai %s: %w", op, err)
}
