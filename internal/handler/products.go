package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/promoforge/promoforge/internal/domain"
	"github.com/promoforge/promoforge/internal/middleware"
	"github.com/promoforge/promoforge/internal/repository"
	"github.com/promoforge/promoforge/internal/service"
)

// ProductHandler serves the product catalog endpoints.
type ProductHandler struct {
	products service.ProductService
	logger   *slog.Logger
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(products service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		products: products,
		logger:   logger,
	}
}

type productView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price,omitempty"`
	ImageKey    string    `json:"image_key,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func newProductView(p repository.Product) productView {
	return productView{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		ImageKey:    p.ImageKey,
		CreatedAt:   p.CreatedAt,
	}
}

// HandleCreateProduct adds a product to the caller's catalog. Creation
// is metered against the products quota.
//
// POST /api/products
func (h *ProductHandler) HandleCreateProduct(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Price       string `json:"price"`
		ImageKey    string `json:"image_key"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	product, err := h.products.Create(r.Context(), user.ID, service.ProductParams{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageKey:    req.ImageKey,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{"product": newProductView(*product)})
}

// HandleListProducts returns the caller's product catalog.
//
// GET /api/products
func (h *ProductHandler) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	products, err := h.products.List(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": views})
}

// HandleDeleteProduct removes a product. Deleting does not refund
// quota; the monthly reset does that.
//
// DELETE /api/products/{id}
func (h *ProductHandler) HandleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	if user == nil {
		UnauthorizedResponse(w, r, h.logger)
		return
	}

	productID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("", "Product ID must be a valid UUID"))
		return
	}

	if err := h.products.Delete(r.Context(), user.ID, productID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
