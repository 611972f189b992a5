package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"logodouman/domain"
)

type inventoryRow struct {
	domain.Inventory
	ProductName string `db:"product_name" json:"productName"`
	Status      string `db:"status" json:"status"`
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	query := `
		SELECT i.product_id, i.quantity, i.reserved, i.available, i.updated_at,
		       p.name AS product_name, p.status
		FROM inventory i
		JOIN products p ON p.id = i.product_id`
	var args []any
	if low := r.URL.Query().Get("low"); low != "" {
		threshold, err := strconv.ParseInt(low, 10, 64)
		if err != nil || threshold < 0 {
			respondError(w, http.StatusBadRequest, "low must be a non-negative integer")
			return
		}
		args = append(args, threshold)
		query += " WHERE i.available <= $1"
	}
	query += " ORDER BY i.available ASC, p.name"

	var rows []inventoryRow
	if err := h.db.Select(&rows, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list inventory")
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

type restockRequest struct {
	Quantity int64 `json:"quantity"`
}

// restockInventory adds stock. Quantity and available move together in
// one statement so the table invariant holds.
func (h *Handler) restockInventory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	productID, err := strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req restockRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Quantity <= 0 {
		respondError(w, http.StatusBadRequest, "quantity must be greater than zero")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to restock")
		return
	}
	defer tx.Rollback()

	var inv domain.Inventory
	err = tx.Get(&inv, `
		UPDATE inventory
		SET quantity = quantity + $1, available = available + $1, updated_at = NOW()
		WHERE product_id = $2
		RETURNING product_id, quantity, reserved, available, updated_at`,
		req.Quantity, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "inventory not found")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to restock")
		}
		return
	}
	if _, err := tx.Exec(`UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2`,
		req.Quantity, productID); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to restock")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to restock")
		return
	}

	h.invalidateDashboard(r)
	respondJSON(w, http.StatusOK, inv)
}
