package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/metrics"
	"github.com/promoforge/promoforge/internal/repository"
)

// ProductParams describes a product creation request.
type ProductParams struct {
	Name        string
	Description string
	Price       string
	ImageKey    string
}

// ProductService manages the user's product catalog. Creating a
// product is metered: it consumes one unit of the products quota.
type ProductService interface {
	Create(ctx context.Context, userID uuid.UUID, params ProductParams) (*repository.Product, error)
	List(ctx context.Context, userID uuid.UUID) ([]repository.Product, error)
	Delete(ctx context.Context, userID, productID uuid.UUID) error
}

type productService struct {
	quota  QuotaService
	store  ProductStore
	logger *slog.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(quota QuotaService, store ProductStore, logger *slog.Logger) ProductService {
	return &productService{
		quota:  quota,
		store:  store,
		logger: logger,
	}
}

func (s *productService) Create(ctx context.Context, userID uuid.UUID, params ProductParams) (*repository.Product, error) {
	const op = "product.create"

	params.Name = strings.TrimSpace(params.Name)
	params.Description = strings.TrimSpace(params.Description)
	if params.Name == "" {
		return nil, domain.Invalid(op, "Product name is required")
	}

	check, err := s.quota.CheckAndIncrement(ctx, userID, domain.CategoryProducts)
	if err != nil {
		return nil, err
	}
	if !check.Allowed {
		metrics.GenerationsTotal.WithLabelValues(string(domain.CategoryProducts), "denied").Inc()
		return nil, domain.QuotaExhausted(op, domain.CategoryProducts,
			check.Counters.For(domain.CategoryProducts), check.Limit)
	}

	product := &repository.Product{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        params.Name,
		Description: params.Description,
		Price:       strings.TrimSpace(params.Price),
		ImageKey:    params.ImageKey,
	}
	if err := s.store.Insert(ctx, product); err != nil {
		return nil, domain.Internal(err, op, "Failed to create product")
	}

	metrics.GenerationsTotal.WithLabelValues(string(domain.CategoryProducts), "ok").Inc()
	s.logger.Info("product created",
		"user_id", userID, "product_id", product.ID, "remaining", check.Remaining)

	return product, nil
}

func (s *productService) List(ctx context.Context, userID uuid.UUID) ([]repository.Product, error) {
	const op = "product.list"

	products, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list products")
	}
	return products, nil
}

func (s *productService) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	const op = "product.delete"

	if err := s.store.Delete(ctx, userID, productID); err != nil {
		return domain.Internal(err, op, "Failed to delete product")
	}
	s.logger.Info("product deleted", "user_id", userID, "product_id", productID)
	return nil
}
