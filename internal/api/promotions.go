package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"logodouman/domain"
	"logodouman/internal/store"
)

type promotionRequest struct {
	Code      string               `json:"code"`
	Name      string               `json:"name"`
	Type      domain.PromotionType `json:"type"`
	Value     int64                `json:"value"`
	MinAmount int64                `json:"minAmount"`
	MaxUses   int64                `json:"maxUses"`
	Active    *bool                `json:"active"`
	StartDate time.Time            `json:"startDate"`
	EndDate   time.Time            `json:"endDate"`
}

func (req *promotionRequest) validate() string {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" || req.Name == "" {
		return "code and name are required"
	}
	switch req.Type {
	case domain.PromotionPercentage:
		if req.Value <= 0 || req.Value > 100 {
			return "percentage value must be between 1 and 100"
		}
	case domain.PromotionFixedAmount:
		if req.Value <= 0 {
			return "fixed amount value must be positive"
		}
	case domain.PromotionFreeShipping:
		// value unused
	default:
		return "type must be PERCENTAGE, FIXED_AMOUNT or FREE_SHIPPING"
	}
	if req.MinAmount < 0 || req.MaxUses < 0 {
		return "minAmount and maxUses must be non-negative"
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() || req.EndDate.Before(req.StartDate) {
		return "startDate and endDate must form a valid window"
	}
	return ""
}

const promotionColumns = `id, code, name, type, value, min_amount, max_uses, used_count,
	active, start_date, end_date, created_at`

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var promotions []domain.Promotion
	if err := h.db.Select(&promotions, `SELECT `+promotionColumns+` FROM promotions ORDER BY created_at DESC`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list promotions")
		return
	}
	respondJSON(w, http.StatusOK, promotions)
}

func (h *Handler) getPromotion(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid promotion id")
		return
	}
	var promo domain.Promotion
	if err := h.db.Get(&promo, `SELECT `+promotionColumns+` FROM promotions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "promotion not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load promotion")
		return
	}
	respondJSON(w, http.StatusOK, promo)
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req promotionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	var promo domain.Promotion
	err := h.db.Get(&promo, `
		INSERT INTO promotions (code, name, type, value, min_amount, max_uses, active, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+promotionColumns,
		req.Code, req.Name, req.Type, req.Value, req.MinAmount, req.MaxUses, active, req.StartDate, req.EndDate)
	if err != nil {
		if isUniqueViolation(err) {
			respondError(w, http.StatusConflict, "promotion code already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to create promotion")
		}
		return
	}
	respondJSON(w, http.StatusCreated, promo)
}

func (h *Handler) updatePromotion(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid promotion id")
		return
	}
	var req promotionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	var promo domain.Promotion
	err = h.db.Get(&promo, `
		UPDATE promotions
		SET code = $1, name = $2, type = $3, value = $4, min_amount = $5, max_uses = $6,
		    active = $7, start_date = $8, end_date = $9
		WHERE id = $10
		RETURNING `+promotionColumns,
		req.Code, req.Name, req.Type, req.Value, req.MinAmount, req.MaxUses, active,
		req.StartDate, req.EndDate, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "promotion not found")
		} else if isUniqueViolation(err) {
			respondError(w, http.StatusConflict, "promotion code already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to update promotion")
		}
		return
	}
	respondJSON(w, http.StatusOK, promo)
}

func (h *Handler) deletePromotion(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid promotion id")
		return
	}
	res, err := h.db.Exec(`DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete promotion")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "promotion not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type validatePromotionRequest struct {
	Code        string `json:"code"`
	OrderAmount int64  `json:"orderAmount"`
}

type validatePromotionResponse struct {
	IsValid        bool   `json:"isValid"`
	DiscountAmount int64  `json:"discountAmount"`
	Code           string `json:"code"`
	Type           string `json:"type,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// validatePromotion is a read-only applicability check for checkout.
// It never consumes a use; the counter moves only when an order is
// actually created with the code.
func (h *Handler) validatePromotion(w http.ResponseWriter, r *http.Request) {
	var req validatePromotionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Code) == "" || req.OrderAmount < 0 {
		respondError(w, http.StatusBadRequest, "code and a non-negative orderAmount are required")
		return
	}

	promo, err := h.store.GetPromotionByCode(r.Context(), req.Code)
	if err != nil {
		if errors.Is(err, store.ErrPromotionNotFound) {
			respondError(w, http.StatusNotFound, "promotion not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load promotion")
		return
	}

	if err := promo.Validate(time.Now(), req.OrderAmount); err != nil {
		respondJSON(w, http.StatusOK, validatePromotionResponse{
			IsValid: false,
			Code:    promo.Code,
			Reason:  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, validatePromotionResponse{
		IsValid:        true,
		DiscountAmount: promo.Discount(req.OrderAmount),
		Code:           promo.Code,
		Type:           string(promo.Type),
	})
}
