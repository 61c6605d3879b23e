package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoforge/promoforge/internal/ai"
	"github.com/promoforge/promoforge/internal/ai/mock"
	"github.com/promoforge/promoforge/internal/domain"
)

type generationHarness struct {
	svc      GenerationService
	usage    *fakeUsageStore
	store    *fakeGenerationStore
	assets   *memStorage
	provider *mock.Provider
}

func newGenerationHarness() *generationHarness {
	usage := newFakeUsageStore()
	store := &fakeGenerationStore{}
	assets := newMemStorage()
	provider := mock.New()
	quota := newTestQuotaService(usage)
	return &generationHarness{
		svc:      NewGenerationService(quota, provider, store, assets, testLogger()),
		usage:    usage,
		store:    store,
		assets:   assets,
		provider: provider,
	}
}

func TestGenerateCopyConsumesQuota(t *testing.T) {
	h := newGenerationHarness()
	userID := uuid.New()

	result, err := h.svc.GenerateCopy(context.Background(), userID, CopyParams{
		ProductName:        "Solar Lantern",
		ProductDescription: "A rechargeable lantern for off-grid homes",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Content)
	assert.Equal(t, 14, result.Remaining)

	rec := h.usage.record(userID)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.Counters.Copies)

	history, err := h.svc.History(context.Background(), userID, domain.CategoryCopies)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.Content, history[0].Output)
}

func TestGenerateCopyDeniedWhenExhausted(t *testing.T) {
	h := newGenerationHarness()
	userID := uuid.New()

	rec := domain.NewUsageRecord(userID, time.Now())
	rec.Counters.Copies = 15
	h.usage.seed(rec)

	_, err := h.svc.GenerateCopy(context.Background(), userID, CopyParams{
		ProductName:        "Solar Lantern",
		ProductDescription: "A rechargeable lantern",
	})
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))
	assert.Empty(t, h.store.items, "nothing is recorded on a denial")
}

func TestGenerateCopyValidation(t *testing.T) {
	h := newGenerationHarness()
	userID := uuid.New()
	ctx := context.Background()

	_, err := h.svc.GenerateCopy(ctx, userID, CopyParams{ProductName: "X"})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	_, err = h.svc.GenerateCopy(ctx, userID, CopyParams{
		ProductName:        "X",
		ProductDescription: "Y",
		Mode:               CopyModeExpert, // no copywriter given
	})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	// Validation failures never consume quota.
	assert.Nil(t, h.usage.record(userID))
}

func TestGenerateContentMarketingRequiresKnownPlatform(t *testing.T) {
	h := newGenerationHarness()
	userID := uuid.New()

	_, err := h.svc.GenerateContentMarketing(context.Background(), userID, ContentMarketingParams{
		ProductDescription: "Handmade soap",
		Platform:           "myspace",
	})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	result, err := h.svc.GenerateContentMarketing(context.Background(), userID, ContentMarketingParams{
		ProductDescription: "Handmade soap",
		Platform:           PlatformInstagram,
	})
	require.NoError(t, err)
	assert.Equal(t, 14, result.Remaining)
	assert.Equal(t, 1, h.usage.record(userID).Counters.ContentMarketing)
}

func TestBrainstormIsUnmetered(t *testing.T) {
	h := newGenerationHarness()
	userID := uuid.New()

	// Even a fully exhausted account can brainstorm.
	rec := domain.NewUsageRecord(userID, time.Now())
	rec.Counters = domain.UsageCounters{Products: 15, Images: 15, Copies: 15, ContentMarketing: 15}
	h.usage.seed(rec)

	result, err := h.svc.Brainstorm(context.Background(), userID, BrainstormParams{
		Topic: "eco-friendly packaging",
		Type:  BrainstormProduct,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Content)
	assert.Equal(t, domain.Unlimited, result.Remaining)
	assert.Equal(t, 15, h.usage.record(userID).Counters.Copies, "counters untouched")
}

func TestGenerateImageStoresAsset(t *testing.T) {
	h := newGenerationHarness()
	userID := uuid.New()

	result, err := h.svc.GenerateImage(context.Background(), userID, ImageGenParams{
		Prompt: "studio photo of a solar lantern",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.URL, "mem://users/"))
	assert.Equal(t, "image/png", result.ContentType)
	assert.Equal(t, 14, result.Remaining)

	exists, err := h.assets.Exists(context.Background(), result.AssetKey)
	require.NoError(t, err)
	assert.True(t, exists)

	history, err := h.svc.History(context.Background(), userID, domain.CategoryImages)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, result.AssetKey, history[0].AssetKey)
	assert.Empty(t, history[0].Output)
}

func TestGenerateImageRejectsOversizedBase(t *testing.T) {
	h := newGenerationHarness()
	userID := uuid.New()

	_, err := h.svc.GenerateImage(context.Background(), userID, ImageGenParams{
		Prompt:      "refine this",
		BaseImage:   make([]byte, MaxBaseImageSize+1),
		ContentType: "image/png",
	})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Nil(t, h.usage.record(userID))
}

func TestGenerateImageRejectsBadContentType(t *testing.T) {
	h := newGenerationHarness()

	_, err := h.svc.GenerateImage(context.Background(), uuid.New(), ImageGenParams{
		Prompt:      "refine this",
		BaseImage:   []byte{0x1},
		ContentType: "application/pdf",
	})
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestProviderFailureMapsToUnavailable(t *testing.T) {
	h := newGenerationHarness()
	h.provider.Err = ai.ErrUnavailable
	userID := uuid.New()

	_, err := h.svc.GenerateCopy(context.Background(), userID, CopyParams{
		ProductName:        "Solar Lantern",
		ProductDescription: "A rechargeable lantern",
	})
	assert.Equal(t, domain.EUNAVAILABLE, domain.ErrorCode(err))
}

func TestProviderRateLimitMapsToRateLimit(t *testing.T) {
	h := newGenerationHarness()
	h.provider.Err = ai.ErrRateLimited
	userID := uuid.New()

	_, err := h.svc.Brainstorm(context.Background(), userID, BrainstormParams{Topic: "x"})
	assert.Equal(t, domain.ERATELIMIT, domain.ErrorCode(err))
}

func TestCreateProductIsMetered(t *testing.T) {
	usage := newFakeUsageStore()
	store := &fakeProductStore{}
	svc := NewProductService(newTestQuotaService(usage), store, testLogger())
	userID := uuid.New()
	ctx := context.Background()

	product, err := svc.Create(ctx, userID, ProductParams{Name: "Solar Lantern", Price: "$29.99"})
	require.NoError(t, err)
	assert.Equal(t, 1, usage.record(userID).Counters.Products)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, product.ID, list[0].ID)

	rec := domain.NewUsageRecord(userID, time.Now())
	rec.Counters.Products = 15
	usage.seed(rec)

	_, err = svc.Create(ctx, userID, ProductParams{Name: "Another"})
	assert.Equal(t, domain.EQUOTA, domain.ErrorCode(err))
}
