package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"logodouman/domain"
)

type customerRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

const customerColumns = `id, first_name, last_name, email, phone, address, city, country,
	total_spent, loyalty_points, created_at`

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		args = append(args, "%"+q+"%")
		query += ` WHERE first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1`
	}
	query += ` ORDER BY created_at DESC LIMIT 100`

	var customers []domain.Customer
	if err := h.db.Select(&customers, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list customers")
		return
	}
	respondJSON(w, http.StatusOK, customers)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var customer domain.Customer
	if err := h.db.Get(&customer, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "customer not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load customer")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "firstName, lastName and email are required")
		return
	}

	var customer domain.Customer
	err := h.db.Get(&customer, `
		INSERT INTO customers (first_name, last_name, email, phone, address, city, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+customerColumns,
		req.FirstName, req.LastName, strings.ToLower(req.Email), req.Phone, req.Address, req.City, req.Country)
	if err != nil {
		if isUniqueViolation(err) {
			respondError(w, http.StatusConflict, "email already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to create customer")
		}
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "firstName, lastName and email are required")
		return
	}

	var customer domain.Customer
	err = h.db.Get(&customer, `
		UPDATE customers
		SET first_name = $1, last_name = $2, email = $3, phone = $4, address = $5, city = $6, country = $7
		WHERE id = $8
		RETURNING `+customerColumns,
		req.FirstName, req.LastName, strings.ToLower(req.Email), req.Phone, req.Address, req.City, req.Country, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "customer not found")
		} else if isUniqueViolation(err) {
			respondError(w, http.StatusConflict, "email already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to update customer")
		}
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	var hasOrders bool
	if err := h.db.Get(&hasOrders, `SELECT EXISTS(SELECT 1 FROM orders WHERE customer_id = $1)`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to check customer orders")
		return
	}
	if hasOrders {
		respondError(w, http.StatusBadRequest, "customer has orders and cannot be deleted")
		return
	}

	res, err := h.db.Exec(`DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete customer")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "customer not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// customerAnalytics aggregates the customer's orders on read. The
// stored total_spent/loyalty_points are maintained by the order flow;
// this endpoint reports the ground truth next to them.
func (h *Handler) customerAnalytics(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	var exists bool
	if err := h.db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id); err != nil || !exists {
		respondError(w, http.StatusNotFound, "customer not found")
		return
	}

	var analytics domain.CustomerAnalytics
	err = h.db.Get(&analytics, `
		SELECT $1::bigint AS customer_id,
		       COUNT(*) AS orders_count,
		       COALESCE(SUM(total_amount - discount_amount), 0) AS lifetime_value,
		       COALESCE(AVG(total_amount - discount_amount), 0)::bigint AS avg_order_value,
		       MAX(created_at) AS last_order_at
		FROM orders
		WHERE customer_id = $1 AND status NOT IN ('CANCELLED', 'REFUNDED')`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute analytics")
		return
	}
	respondJSON(w, http.StatusOK, analytics)
}

// customerSegmentation buckets customers by spend and recency.
func (h *Handler) customerSegmentation(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var segments []domain.CustomerSegment
	err := h.db.Select(&segments, `
		WITH spend AS (
			SELECT c.id,
			       c.total_spent,
			       MAX(o.created_at) AS last_order_at
			FROM customers c
			LEFT JOIN orders o ON o.customer_id = c.id AND o.status NOT IN ('CANCELLED', 'REFUNDED')
			GROUP BY c.id
		)
		SELECT CASE
			WHEN total_spent >= 50000000 THEN 'vip'
			WHEN total_spent >= 10000000 THEN 'loyal'
			WHEN last_order_at >= NOW() - INTERVAL '90 days' THEN 'recent'
			ELSE 'dormant'
		END AS segment,
		COUNT(*) AS customers,
		COALESCE(SUM(total_spent), 0) AS total_spent
		FROM spend
		GROUP BY 1
		ORDER BY total_spent DESC`)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to compute segmentation")
		return
	}
	respondJSON(w, http.StatusOK, segments)
}
