package handler

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/middleware"
	"github.com/promoforge/promoforge/internal/repository"
	"github.com/promoforge/promoforge/internal/service"
)

// GenerateHandler serves the AI generation endpoints.
type GenerateHandler struct {
	generations service.GenerationService
	logger      *slog.Logger
}

// NewGenerateHandler creates a new GenerateHandler.
func NewGenerateHandler(generations service.GenerationService, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{
		generations: generations,
		logger:      logger,
	}
}

// HandleGenerateCopy generates sales copy for a product.
//
// POST /api/generate/copy
func (h *GenerateHandler) HandleGenerateCopy(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		ProductName        string `json:"product_name"`
		ProductDescription string `json:"product_description"`
		Mode               string `json:"mode"`
		Copywriter         string `json:"copywriter"`
		TargetAudience     string `json:"target_audience"`
		UniqueValue        string `json:"unique_value"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.generations.GenerateCopy(r.Context(), user.ID, service.CopyParams{
		ProductName:        req.ProductName,
		ProductDescription: req.ProductDescription,
		Mode:               req.Mode,
		Copywriter:         req.Copywriter,
		TargetAudience:     req.TargetAudience,
		UniqueValue:        req.UniqueValue,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondTextGeneration(w, result)
}

// HandleGenerateContentMarketing generates platform-specific content.
//
// POST /api/generate/content-marketing
func (h *GenerateHandler) HandleGenerateContentMarketing(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		ProductDescription string `json:"product_description"`
		Platform           string `json:"platform"`
		TargetAudience     string `json:"target_audience"`
		ContentGoal        string `json:"content_goal"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.generations.GenerateContentMarketing(r.Context(), user.ID, service.ContentMarketingParams{
		ProductDescription: req.ProductDescription,
		Platform:           req.Platform,
		TargetAudience:     req.TargetAudience,
		ContentGoal:        req.ContentGoal,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondTextGeneration(w, result)
}

// HandleBrainstorm generates ideas. Brainstorms are free on every tier.
//
// POST /api/generate/brainstorm
func (h *GenerateHandler) HandleBrainstorm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		Topic   string `json:"topic"`
		Context string `json:"context"`
		Type    string `json:"type"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.generations.Brainstorm(r.Context(), user.ID, service.BrainstormParams{
		Topic:   req.Topic,
		Context: req.Context,
		Type:    req.Type,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondTextGeneration(w, result)
}

// HandleGenerateImage generates or refines a product image. The base
// image, when present, travels as base64 in the JSON body.
//
// POST /api/generate/image
func (h *GenerateHandler) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		Prompt      string `json:"prompt"`
		BaseImage   string `json:"base_image"`
		ContentType string `json:"content_type"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var baseImage []byte
	if req.BaseImage != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.BaseImage)
		if err != nil {
			ErrorResponse(w, r, h.logger, domain.Invalid("", "base_image must be valid base64"))
			return
		}
		baseImage = decoded
	}

	result, err := h.generations.GenerateImage(r.Context(), user.ID, service.ImageGenParams{
		Prompt:      req.Prompt,
		BaseImage:   baseImage,
		ContentType: req.ContentType,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"id":            result.ID.String(),
		"asset_key":     result.AssetKey,
		"url":           result.URL,
		"thumbnail_url": result.ThumbnailURL,
		"content_type":  result.ContentType,
		"remaining":     result.Remaining,
	})
}

// HandleListGenerations returns the caller's recent generations.
//
// GET /api/generations?category=copies
func (h *GenerateHandler) HandleListGenerations(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	category, ok := domain.ParseCategory(r.URL.Query().Get("category"))
	if !ok {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "category must be one of products, images, copies, content_marketing"))
		return
	}

	items, err := h.generations.History(r.Context(), user.ID, category)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	views := make([]generationView, 0, len(items))
	for _, item := range items {
		views = append(views, newGenerationView(item))
	}
	respondJSON(w, http.StatusOK, map[string]any{"generations": views})
}

type generationView struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Prompt    string    `json:"prompt"`
	Output    string    `json:"output,omitempty"`
	AssetKey  string    `json:"asset_key,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newGenerationView(g repository.Generation) generationView {
	return generationView{
		ID:        g.ID.String(),
		Category:  string(g.Category),
		Prompt:    g.Prompt,
		Output:    g.Output,
		AssetKey:  g.AssetKey,
		CreatedAt: g.CreatedAt,
	}
}

func respondTextGeneration(w http.ResponseWriter, result *service.TextGeneration) {
	body := map[string]any{
		"content":   result.Content,
		"model":     result.Model,
		"remaining": result.Remaining,
	}
	// Brainstorms are not persisted, so there is no history row for the
	// id to reference.
	if result.ID != uuid.Nil {
		body["id"] = result.ID.String()
	}
	respondJSON(w, http.StatusOK, body)
}
