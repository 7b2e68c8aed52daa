package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ovenworks/bakehouse/internal/catalog"
	catalogdomain "github.com/ovenworks/bakehouse/internal/catalog/domain"
	"github.com/ovenworks/bakehouse/internal/identity"
	"github.com/ovenworks/bakehouse/internal/pkg/apperror"
)

// CatalogService is the catalog-facing port the handler depends on,
// implemented by *catalog.Service.
type CatalogService interface {
	Create(ctx context.Context, p *catalogdomain.Product) (*catalogdomain.Product, error)
	Get(ctx context.Context, id string) (*catalogdomain.Product, error)
	List(ctx context.Context, f catalog.ListFilter) ([]catalogdomain.Product, int64, error)
	AdjustStock(ctx context.Context, id string, delta int) (*catalogdomain.Product, error)
}

// CatalogHandler handles the /products routes.
type CatalogHandler struct {
	catalog CatalogService
}

func NewCatalogHandler(c CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: c}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, total, err := h.catalog.List(r.Context(), catalog.ListFilter{
		AvailableOnly: r.URL.Query().Get("all") != "true",
		Category:      r.URL.Query().Get("category"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make([]ProductResponse, len(products))
	for i := range products {
		data[i] = mapProductToResponse(&products[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": data, "total": total})
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProductToResponse(p))
}

// CreateProduct registers a new catalog entry. Admin only.
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperror.Validation("invalid JSON body"))
		return
	}

	available := req.Stock > 0
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	p, err := h.catalog.Create(r.Context(), &catalogdomain.Product{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Category:        req.Category,
		Stock:           req.Stock,
		IsAvailable:     available,
		PreparationTime: req.PreparationTime,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapProductToResponse(p))
}

// AdjustStock applies a stock delta through the atomic adjustment path.
// Admin only.
func (h *CatalogHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, apperror.Validation("invalid JSON body"))
		return
	}

	p, err := h.catalog.AdjustStock(r.Context(), chi.URLParam(r, "id"), req.Delta)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProductToResponse(p))
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	ident, ok := identity.FromContext(r.Context())
	if !ok {
		writeError(w, r, apperror.Authentication("identity required"))
		return false
	}
	if !ident.IsAdmin() {
		writeError(w, r, apperror.Authorization("admin role required"))
		return false
	}
	return true
}
