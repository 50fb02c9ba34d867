package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chinarbooks/storefront/internal/domain"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListActive(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if products == nil {
		products = []domain.Product{}
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

type productRequest struct {
	Title             string `json:"title"`
	Slug              string `json:"slug"`
	SKU               string `json:"sku"`
	Language          string `json:"language"`
	Format            string `json:"format"`
	MRPPaisa          int64  `json:"mrp_paisa"`
	SalePaisa         int64  `json:"sale_paisa"`
	TaxRateBps        int64  `json:"tax_rate_bps"`
	Stock             int    `json:"stock"`
	LowStockThreshold int    `json:"low_stock_threshold"`
	Status            string `json:"status"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" || req.MRPPaisa <= 0 {
		h.writeError(w, http.StatusBadRequest, "title and a positive mrp_paisa are required")
		return
	}

	product := &domain.Product{
		Title:             req.Title,
		Slug:              req.Slug,
		SKU:               req.SKU,
		Language:          req.Language,
		Format:            req.Format,
		MRPPaisa:          req.MRPPaisa,
		SalePaisa:         req.SalePaisa,
		TaxRateBps:        req.TaxRateBps,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		Status:            domain.ProductStatus(req.Status),
	}

	if err := h.repo.Create(r.Context(), product); err != nil {
		h.logger.Error("failed to create product", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product created", "product_id", product.ID, "title", product.Title)
	h.writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product := &domain.Product{
		ID:                id,
		Title:             req.Title,
		Slug:              req.Slug,
		SKU:               req.SKU,
		Language:          req.Language,
		Format:            req.Format,
		MRPPaisa:          req.MRPPaisa,
		SalePaisa:         req.SalePaisa,
		TaxRateBps:        req.TaxRateBps,
		LowStockThreshold: req.LowStockThreshold,
		Status:            domain.ProductStatus(req.Status),
	}

	if err := h.repo.Update(r.Context(), product); err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			h.writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to update product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	updated, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to reload product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("product updated", "product_id", id)
	h.writeJSON(w, http.StatusOK, updated)
}

type stockRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) HandleAdjustStock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req stockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.repo.AdjustStock(r.Context(), id, req.Delta); err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			h.writeError(w, http.StatusConflict, "insufficient stock")
			return
		}
		h.logger.Error("failed to adjust stock", "error", err, "id", id, "delta", req.Delta)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	product, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to reload product", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("stock adjusted", "product_id", id, "delta", req.Delta)
	h.writeJSON(w, http.StatusOK, product)
}

func (h *Handler) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListLowStock(r.Context())
	if err != nil {
		h.logger.Error("failed to list low stock products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if products == nil {
		products = []domain.Product{}
	}
	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
