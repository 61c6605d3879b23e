// Package gateway implements the ai.Provider interface against an
// OpenAI-compatible chat-completions gateway.
//
// Text generations use a plain chat completion. Image generations use
// the image modality: the gateway returns the finished image as a
// base64 data URL under choices[0].message.images[0].image_url.url.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/promoforge/promoforge/internal/ai"
)

// Config contains configuration for the gateway provider.
type Config struct {
	URL            string
	APIKey         string
	TextModel      string
	ImageModel     string
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Provider against the configured gateway.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new gateway provider.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gateway API key is required")
	}
	if config.URL == "" {
		return nil, fmt.Errorf("gateway URL is required")
	}

	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// =============================================================================
// Wire types (OpenAI chat-completions shape)
// =============================================================================

type chatRequest struct {
	Model      string        `json:"model"`
	Messages   []chatMessage `json:"messages"`
	Modalities []string      `json:"modalities,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string, or content parts for image input
}

type contentPart struct {
	Type     string        `json:"type"` // "text" or "image_url"
	Text     string        `json:"text,omitempty"`
	ImageURL *imageURLPart `json:"image_url,omitempty"`
}

type imageURLPart struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Images  []struct {
				ImageURL imageURLPart `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// =============================================================================
// Provider implementation
// =============================================================================

// GenerateText produces a text completion.
func (p *Provider) GenerateText(ctx context.Context, params ai.TextParams) (*ai.TextResult, error) {
	start := time.Now()

	req := chatRequest{
		Model: p.config.TextModel,
		Messages: []chatMessage{
			{Role: "system", Content: params.System},
			{Role: "user", Content: params.Prompt},
		},
	}

	resp, err := p.send(ctx, req)
	if err != nil {
		return nil, ai.WrapError("generate text", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ai.WrapError("generate text", ai.ErrEmptyResult)
	}

	return &ai.TextResult{
		Content:      resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Duration:     time.Since(start),
	}, nil
}

// GenerateImage produces an image via the image modality.
func (p *Provider) GenerateImage(ctx context.Context, params ai.ImageParams) (*ai.ImageResult, error) {
	start := time.Now()

	var content any = params.Prompt
	if len(params.BaseImage) > 0 {
		dataURL := fmt.Sprintf("data:%s;base64,%s",
			params.ContentType, base64.StdEncoding.EncodeToString(params.BaseImage))
		content = []contentPart{
			{Type: "text", Text: params.Prompt},
			{Type: "image_url", ImageURL: &imageURLPart{URL: dataURL}},
		}
	}

	req := chatRequest{
		Model:      p.config.ImageModel,
		Messages:   []chatMessage{{Role: "user", Content: content}},
		Modalities: []string{"image", "text"},
	}

	resp, err := p.send(ctx, req)
	if err != nil {
		return nil, ai.WrapError("generate image", err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Images) == 0 {
		return nil, ai.WrapError("generate image", ai.ErrEmptyResult)
	}

	data, contentType, err := decodeDataURL(resp.Choices[0].Message.Images[0].ImageURL.URL)
	if err != nil {
		return nil, ai.WrapError("generate image", err)
	}

	return &ai.ImageResult{
		Data:        data,
		ContentType: contentType,
		Model:       resp.Model,
		Duration:    time.Since(start),
	}, nil
}

// send posts the request with retries on transient upstream failures.
func (p *Provider) send(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
			p.logger.Debug("retrying gateway call", "attempt", attempt, "delay", delay)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, retryable, err := p.post(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %v", ai.ErrUnavailable, lastErr)
}

func (p *Provider) post(ctx context.Context, body []byte) (*chatResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		// Network errors and timeouts are retryable.
		return nil, true, fmt.Errorf("gateway request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 50<<20))
	if err != nil {
		return nil, true, fmt.Errorf("read gateway response: %w", err)
	}

	switch {
	case httpResp.StatusCode == http.StatusOK:
		// fall through to decode
	case httpResp.StatusCode == http.StatusTooManyRequests,
		httpResp.StatusCode == http.StatusPaymentRequired:
		return nil, false, fmt.Errorf("%w: gateway status %d", ai.ErrRateLimited, httpResp.StatusCode)
	case httpResp.StatusCode >= 500:
		return nil, true, fmt.Errorf("gateway status %d: %s", httpResp.StatusCode, truncate(respBody, 200))
	default:
		return nil, false, fmt.Errorf("gateway status %d: %s", httpResp.StatusCode, truncate(respBody, 200))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, false, fmt.Errorf("decode gateway response: %w", err)
	}
	return &resp, false, nil
}

// decodeDataURL splits a "data:<mime>;base64,<payload>" URL into raw
// bytes and content type.
func decodeDataURL(url string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return nil, "", fmt.Errorf("unexpected image URL format")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data URL")
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode image payload: %w", err)
	}
	return data, contentType, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
