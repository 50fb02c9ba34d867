package coupon

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lib/pq"

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

type createCouponRequest struct {
	Code           string     `json:"code"`
	Kind           string     `json:"kind"`
	Value          int64      `json:"value"`
	MinSubtotal    int64      `json:"min_subtotal_paisa"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
	MaxRedemptions int        `json:"max_redemptions"`
	Active         *bool      `json:"active"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kind := domain.CouponKind(req.Kind)
	if req.Code == "" || (kind != domain.CouponPercent && kind != domain.CouponFixed) {
		h.writeError(w, http.StatusBadRequest, "code and kind (percent|fixed) are required")
		return
	}
	if req.Value <= 0 || (kind == domain.CouponPercent && req.Value > 100) {
		h.writeError(w, http.StatusBadRequest, "invalid coupon value")
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	startsAt := req.StartsAt
	if startsAt.IsZero() {
		startsAt = time.Now().UTC()
	}

	c := &domain.Coupon{
		Code:           req.Code,
		Kind:           kind,
		Value:          req.Value,
		MinSubtotal:    req.MinSubtotal,
		StartsAt:       startsAt,
		EndsAt:         req.EndsAt,
		MaxRedemptions: req.MaxRedemptions,
		Active:         active,
	}

	if err := h.repo.Create(r.Context(), c); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			h.writeError(w, http.StatusConflict, "coupon code already exists")
			return
		}
		h.logger.Error("failed to create coupon", "error", err, "code", req.Code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("coupon created", "code", c.Code, "kind", c.Kind)
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing coupon code")
		return
	}

	c, err := h.repo.GetByCode(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to get coupon", "error", err, "code", code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if c == nil {
		h.writeError(w, http.StatusNotFound, "coupon not found")
		return
	}

	h.writeJSON(w, http.StatusOK, c)
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
