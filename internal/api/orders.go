package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"logodouman/domain"
	"logodouman/internal/store"
)

type createOrderRequest struct {
	CustomerID     int64                  `json:"customerId"`
	UserID         *int64                 `json:"userId"`
	Status         domain.OrderStatus     `json:"status"`
	TotalAmount    int64                  `json:"totalAmount"`
	TaxAmount      int64                  `json:"taxAmount"`
	ShippingCost   int64                  `json:"shippingCost"`
	PromotionCode  string                 `json:"promotionCode"`
	IdempotencyKey string                 `json:"idempotencyKey"`
	Notes          string                 `json:"notes"`
	Items          []store.OrderItemInput `json:"items"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CustomerID <= 0 {
		respondError(w, http.StatusBadRequest, "customerId is required")
		return
	}
	if len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "items must not be empty")
		return
	}
	for i, item := range req.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 || item.UnitPrice < 0 {
			respondError(w, http.StatusBadRequest,
				fmt.Sprintf("items[%d]: productId and quantity must be positive, unitPrice non-negative", i))
			return
		}
	}
	if req.TaxAmount < 0 || req.ShippingCost < 0 || req.TotalAmount < 0 {
		respondError(w, http.StatusBadRequest, "amounts must be non-negative")
		return
	}
	// New orders start PENDING; CONFIRMED is allowed for back-office
	// entry of already-settled orders.
	if req.Status != "" && req.Status != domain.OrderPending && req.Status != domain.OrderConfirmed {
		respondError(w, http.StatusBadRequest, "status must be PENDING or CONFIRMED on creation")
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(req.IdempotencyKey)
	}

	if req.UserID == nil {
		if uid := userIDFromContext(r); uid > 0 {
			req.UserID = &uid
		}
	}

	order, replayed, err := h.store.CreateOrder(r.Context(), store.CreateOrderInput{
		CustomerID:     req.CustomerID,
		UserID:         req.UserID,
		Status:         req.Status,
		TotalAmount:    req.TotalAmount,
		TaxAmount:      req.TaxAmount,
		ShippingCost:   req.ShippingCost,
		PromotionCode:  req.PromotionCode,
		IdempotencyKey: key,
		Notes:          req.Notes,
		Items:          req.Items,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.invalidateDashboard(r)
	if replayed {
		respondJSON(w, http.StatusOK, order)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	filter := store.OrderFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.OrderStatus(strings.ToUpper(status))
		if !filter.Status.Valid() {
			respondError(w, http.StatusBadRequest, "unknown status filter")
			return
		}
	}
	if raw := r.URL.Query().Get("customerId"); raw != "" {
		customerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || customerID <= 0 {
			respondError(w, http.StatusBadRequest, "invalid customerId filter")
			return
		}
		filter.CustomerID = customerID
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	orders, err := h.store.ListOrders(r.Context(), filter)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	order, err := h.store.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type updateOrderRequest struct {
	Notes string `json:"notes"`
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req updateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := h.store.UpdateOrderNotes(r.Context(), chi.URLParam(r, "id"), req.Notes)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, err := h.store.UpdateOrderStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	h.invalidateDashboard(r)
	respondJSON(w, http.StatusOK, order)
}

type statusCount struct {
	Status domain.OrderStatus `db:"status" json:"status"`
	Count  int64              `db:"count" json:"count"`
	Amount int64              `db:"amount" json:"amount"`
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}

	var (
		args    []any
		clauses []string
	)
	if startDate := strings.TrimSpace(r.URL.Query().Get("startDate")); startDate != "" {
		if _, err := time.Parse("2006-01-02", startDate); err != nil {
			respondError(w, http.StatusBadRequest, "startDate must be in YYYY-MM-DD format")
			return
		}
		args = append(args, startDate)
		clauses = append(clauses, fmt.Sprintf("DATE(created_at) >= $%d", len(args)))
	}
	if endDate := strings.TrimSpace(r.URL.Query().Get("endDate")); endDate != "" {
		if _, err := time.Parse("2006-01-02", endDate); err != nil {
			respondError(w, http.StatusBadRequest, "endDate must be in YYYY-MM-DD format")
			return
		}
		args = append(args, endDate)
		clauses = append(clauses, fmt.Sprintf("DATE(created_at) <= $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var byStatus []statusCount
	if err := h.db.Select(&byStatus, `
		SELECT status, COUNT(*) AS count, COALESCE(SUM(total_amount - discount_amount), 0) AS amount
		FROM orders`+where+`
		GROUP BY status ORDER BY status`, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute order stats")
		return
	}

	var totals struct {
		Orders   int64 `db:"orders"`
		Revenue  int64 `db:"revenue"`
		AvgOrder int64 `db:"avg_order"`
	}
	if err := h.db.Get(&totals, `
		SELECT COUNT(*) AS orders,
		       COALESCE(SUM(total_amount - discount_amount), 0) AS revenue,
		       COALESCE(AVG(total_amount - discount_amount), 0)::bigint AS avg_order
		FROM orders`+where+nonRevenueFilter(where), args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute order stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"byStatus":      byStatus,
		"orders":        totals.Orders,
		"revenue":       totals.Revenue,
		"avgOrderValue": totals.AvgOrder,
	})
}

// nonRevenueFilter appends the clause excluding cancelled and refunded
// orders from revenue totals.
func nonRevenueFilter(where string) string {
	if where == "" {
		return " WHERE status NOT IN ('CANCELLED', 'REFUNDED')"
	}
	return " AND status NOT IN ('CANCELLED', 'REFUNDED')"
}
