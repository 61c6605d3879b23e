package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/ai"
	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/metrics"
	"github.com/promoforge/promoforge/internal/repository"
	"github.com/promoforge/promoforge/internal/storage"
)

const (
	// MaxBaseImageSize caps uploaded base images for refinement.
	MaxBaseImageSize = 10 << 20

	// thumbnailMaxDim bounds the longest edge of stored thumbnails.
	thumbnailMaxDim = 512

	// historyLimit is the page size for generation history.
	historyLimit = 50
)

// CopyParams describes a sales copy generation request.
type CopyParams struct {
	ProductName        string
	ProductDescription string
	Mode               string // guided, expert, or kenny
	Copywriter         string // required for expert mode
	TargetAudience     string
	UniqueValue        string
}

// ContentMarketingParams describes a platform content generation request.
type ContentMarketingParams struct {
	ProductDescription string
	Platform           string // whatsapp, instagram, or tiktok
	TargetAudience     string
	ContentGoal        string
}

// BrainstormParams describes an idea brainstorm request.
type BrainstormParams struct {
	Topic   string
	Context string
	Type    string // product, marketing, or content
}

// ImageGenParams describes an image generation request. BaseImage, when
// set, is refined instead of generating from scratch.
type ImageGenParams struct {
	Prompt      string
	BaseImage   []byte
	ContentType string
}

// TextGeneration is a completed text generation.
type TextGeneration struct {
	ID        uuid.UUID
	Content   string
	Model     string
	Remaining int // units left in the category; domain.Unlimited when uncapped
}

// ImageGeneration is a completed image generation with its stored asset.
type ImageGeneration struct {
	ID           uuid.UUID
	AssetKey     string
	URL          string
	ThumbnailURL string
	ContentType  string
	Remaining    int
}

// GenerationService runs AI generations behind the quota gate.
//
// Every metered method consumes quota BEFORE calling the AI provider;
// a denied check never reaches the provider. Brainstorms are free and
// bypass the gate.
type GenerationService interface {
	GenerateCopy(ctx context.Context, userID uuid.UUID, params CopyParams) (*TextGeneration, error)
	GenerateContentMarketing(ctx context.Context, userID uuid.UUID, params ContentMarketingParams) (*TextGeneration, error)
	Brainstorm(ctx context.Context, userID uuid.UUID, params BrainstormParams) (*TextGeneration, error)
	GenerateImage(ctx context.Context, userID uuid.UUID, params ImageGenParams) (*ImageGeneration, error)

	// History returns the user's recent generations in a category.
	History(ctx context.Context, userID uuid.UUID, category domain.Category) ([]repository.Generation, error)
}

type generationService struct {
	quota    QuotaService
	provider ai.Provider
	store    GenerationStore
	assets   storage.Storage
	logger   *slog.Logger
}

// NewGenerationService creates a new GenerationService.
func NewGenerationService(quota QuotaService, provider ai.Provider, store GenerationStore, assets storage.Storage, logger *slog.Logger) GenerationService {
	return &generationService{
		quota:    quota,
		provider: provider,
		store:    store,
		assets:   assets,
		logger:   logger,
	}
}

func (s *generationService) GenerateCopy(ctx context.Context, userID uuid.UUID, params CopyParams) (*TextGeneration, error) {
	const op = "generation.copy"

	params.ProductName = strings.TrimSpace(params.ProductName)
	params.ProductDescription = strings.TrimSpace(params.ProductDescription)
	if params.ProductName == "" || params.ProductDescription == "" {
		return nil, domain.Invalid(op, "Product name and description are required")
	}
	if params.Mode == "" {
		params.Mode = CopyModeGuided
	}
	if params.Mode == CopyModeExpert && strings.TrimSpace(params.Copywriter) == "" {
		return nil, domain.Invalid(op, "Copywriter is required for expert mode")
	}

	system, user := copyPrompts(params)
	return s.meteredText(ctx, op, userID, domain.CategoryCopies, system, user)
}

func (s *generationService) GenerateContentMarketing(ctx context.Context, userID uuid.UUID, params ContentMarketingParams) (*TextGeneration, error) {
	const op = "generation.content_marketing"

	params.ProductDescription = strings.TrimSpace(params.ProductDescription)
	if params.ProductDescription == "" {
		return nil, domain.Invalid(op, "Product description is required")
	}
	switch params.Platform {
	case PlatformWhatsApp, PlatformInstagram, PlatformTikTok:
	default:
		return nil, domain.Invalid(op, "Platform must be whatsapp, instagram, or tiktok")
	}

	system, user := contentMarketingPrompts(params)
	return s.meteredText(ctx, op, userID, domain.CategoryContentMarketing, system, user)
}

// Brainstorm is not metered: idea generation is free on every tier.
func (s *generationService) Brainstorm(ctx context.Context, userID uuid.UUID, params BrainstormParams) (*TextGeneration, error) {
	const op = "generation.brainstorm"

	params.Topic = strings.TrimSpace(params.Topic)
	if params.Topic == "" {
		return nil, domain.Invalid(op, "Topic is required")
	}

	system, user := brainstormPrompts(params)
	result, err := s.provider.GenerateText(ctx, ai.TextParams{System: system, Prompt: user})
	if err != nil {
		metrics.AIAPICalls.WithLabelValues("text", "error").Inc()
		return nil, aiError(op, err)
	}
	s.recordTextCall(result)

	return &TextGeneration{
		Content:   result.Content,
		Model:     result.Model,
		Remaining: domain.Unlimited,
	}, nil
}

func (s *generationService) GenerateImage(ctx context.Context, userID uuid.UUID, params ImageGenParams) (*ImageGeneration, error) {
	const op = "generation.image"

	params.Prompt = strings.TrimSpace(params.Prompt)
	if params.Prompt == "" {
		return nil, domain.Invalid(op, "Prompt is required")
	}
	if len(params.BaseImage) > 0 {
		if len(params.BaseImage) > MaxBaseImageSize {
			return nil, domain.Invalid(op, "Base image exceeds the 10 MB limit")
		}
		if !storage.IsAllowedImageType(params.ContentType) {
			return nil, domain.Invalid(op, "Base image must be JPEG, PNG, or WebP")
		}
	}

	check, err := s.quota.CheckAndIncrement(ctx, userID, domain.CategoryImages)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		metrics.GenerationsTotal.WithLabelValues(string(domain.CategoryImages), "denied").Inc()
		return nil, domain.QuotaExhausted(op, domain.CategoryImages,
			check.Counters.For(domain.CategoryImages), check.Limit)
	}

	result, err := s.provider.GenerateImage(ctx, ai.ImageParams{
		Prompt:      params.Prompt,
		BaseImage:   params.BaseImage,
		ContentType: params.ContentType,
	})
	if err != nil {
		metrics.AIAPICalls.WithLabelValues("image", "error").Inc()
		metrics.GenerationsTotal.WithLabelValues(string(domain.CategoryImages), "error").Inc()
		return nil, aiError(op, err)
	}
	metrics.AIAPICalls.WithLabelValues("image", "ok").Inc()

	key := storage.AssetKey(userID, result.ContentType)
	err = s.assets.Put(ctx, key, bytes.NewReader(result.Data), storage.PutOptions{
		ContentType: result.ContentType,
		Public:      true,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to store generated image")
	}

	thumbURL := s.storeThumbnail(ctx, userID, result)

	gen := &repository.Generation{
		ID:       uuid.New(),
		UserID:   userID,
		Category: domain.CategoryImages,
		Prompt:   params.Prompt,
		AssetKey: key,
	}
	if err := s.store.Insert(ctx, gen); err != nil {
		return nil, domain.Internal(err, op, "Failed to record generation")
	}

	url, err := s.assets.URL(ctx, key, 0)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to build asset URL")
	}

	metrics.GenerationsTotal.WithLabelValues(string(domain.CategoryImages), "ok").Inc()
	s.logger.Info("image generated",
		"user_id", userID, "model", result.Model, "asset_key", key,
		"remaining", check.Remaining)

	return &ImageGeneration{
		ID:           gen.ID,
		AssetKey:     key,
		URL:          url,
		ThumbnailURL: thumbURL,
		ContentType:  result.ContentType,
		Remaining:    check.Remaining,
	}, nil
}

func (s *generationService) History(ctx context.Context, userID uuid.UUID, category domain.Category) ([]repository.Generation, error) {
	const op = "generation.history"

	items, err := s.store.ListByUser(ctx, userID, category, historyLimit)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list generations")
	}
	return items, nil
}

// meteredText consumes one unit of quota, then runs and records a text
// generation.
func (s *generationService) meteredText(ctx context.Context, op string, userID uuid.UUID, category domain.Category, system, user string) (*TextGeneration, error) {
	check, err := s.quota.CheckAndIncrement(ctx, userID, category)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		metrics.GenerationsTotal.WithLabelValues(string(category), "denied").Inc()
		return nil, domain.QuotaExhausted(op, category, check.Counters.For(category), check.Limit)
	}

	result, err := s.provider.GenerateText(ctx, ai.TextParams{System: system, Prompt: user})
	if err != nil {
		metrics.AIAPICalls.WithLabelValues("text", "error").Inc()
		metrics.GenerationsTotal.WithLabelValues(string(category), "error").Inc()
		return nil, aiError(op, err)
	}
	s.recordTextCall(result)

	gen := &repository.Generation{
		ID:       uuid.New(),
		UserID:   userID,
		Category: category,
		Prompt:   user,
		Output:   result.Content,
	}
	if err := s.store.Insert(ctx, gen); err != nil {
		return nil, domain.Internal(err, op, "Failed to record generation")
	}

	metrics.GenerationsTotal.WithLabelValues(string(category), "ok").Inc()
	s.logger.Info("text generated",
		"user_id", userID, "category", category, "model", result.Model,
		"duration", result.Duration, "remaining", check.Remaining)

	return &TextGeneration{
		ID:        gen.ID,
		Content:   result.Content,
		Model:     result.Model,
		Remaining: check.Remaining,
	}, nil
}

// storeThumbnail renders and stores a bounded thumbnail of the
// generated image. Thumbnails are best-effort; a failure is logged and
// the full asset still serves.
func (s *generationService) storeThumbnail(ctx context.Context, userID uuid.UUID, result *ai.ImageResult) string {
	img, err := imaging.Decode(bytes.NewReader(result.Data))
	if err != nil {
		s.logger.Warn("thumbnail decode failed", "user_id", userID, "error", err)
		return ""
	}

	thumb := imaging.Fit(img, thumbnailMaxDim, thumbnailMaxDim, imaging.Lanczos)

	format := imaging.JPEG
	contentType := "image/jpeg"
	if result.ContentType == "image/png" {
		format = imaging.PNG
		contentType = "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		s.logger.Warn("thumbnail encode failed", "user_id", userID, "error", err)
		return ""
	}

	key := storage.ThumbnailKey(userID, contentType)
	err = s.assets.Put(ctx, key, &buf, storage.PutOptions{ContentType: contentType, Public: true})
	if err != nil {
		s.logger.Warn("thumbnail store failed", "user_id", userID, "error", err)
		return ""
	}

	url, err := s.assets.URL(ctx, key, 0)
	if err != nil {
		return ""
	}
	return url
}

func (s *generationService) recordTextCall(result *ai.TextResult) {
	metrics.AIAPICalls.WithLabelValues("text", "ok").Inc()
	metrics.AITokensTotal.WithLabelValues("input").Add(float64(result.InputTokens))
	metrics.AITokensTotal.WithLabelValues("output").Add(float64(result.OutputTokens))
}

// aiError translates provider failures into domain errors.
func aiError(op string, err error) error {
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return domain.RateLimit(op)
	case errors.Is(err, ai.ErrEmptyResult):
		return domain.Unavailable(err, op, "The AI service returned no content. Please try again.")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domain.Unavailable(err, op, "The AI request timed out. Please try again.")
	default:
		return domain.Unavailable(err, op, fmt.Sprintf("AI generation failed: %s", domainSafeReason(err)))
	}
}

// domainSafeReason keeps upstream error detail out of client messages.
func domainSafeReason(err error) string {
	if errors.Is(err, ai.ErrUnavailable) {
		return "the service is temporarily unavailable"
	}
	return "an upstream error occurred"
}
