package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"logodouman/domain"
)

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	CategoryID  string `json:"categoryId"`
	ImageURL    string `json:"imageUrl"`
	Status      string `json:"status"`
	// Stock seeds the inventory row on create; updates must go through
	// the inventory endpoints instead.
	Stock int64 `json:"stock"`
}

const productColumns = `id, name, description, price, category_id, image_url, status, stock, created_at, updated_at`

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	var (
		args    []any
		clauses []string
	)
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		args = append(args, category)
		clauses = append(clauses, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		args = append(args, status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		args = append(args, "%"+q+"%")
		clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY name LIMIT 100"

	var products []domain.Product
	if err := h.db.Select(&products, query, args...); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list products")
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var product domain.Product
	if err := h.db.Get(&product, `SELECT `+productColumns+` FROM products WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load product")
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.CategoryID == "" {
		respondError(w, http.StatusBadRequest, "name and categoryId are required")
		return
	}
	if req.Price < 0 || req.Stock < 0 {
		respondError(w, http.StatusBadRequest, "price and stock must be non-negative")
		return
	}
	if req.Status == "" {
		req.Status = domain.ProductActive
	}
	if req.Status != domain.ProductActive && req.Status != domain.ProductInactive {
		respondError(w, http.StatusBadRequest, "status must be active or inactive")
		return
	}

	var categoryExists bool
	if err := h.db.Get(&categoryExists, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1)`, req.CategoryID); err != nil || !categoryExists {
		respondError(w, http.StatusBadRequest, "invalid categoryId")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create product")
		return
	}
	defer tx.Rollback()

	var product domain.Product
	err = tx.Get(&product, `
		INSERT INTO products (name, description, price, category_id, image_url, status, stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		req.Name, req.Description, req.Price, req.CategoryID, req.ImageURL, req.Status, req.Stock)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create product")
		return
	}
	// Every product owns exactly one inventory row.
	if _, err := tx.Exec(`INSERT INTO inventory (product_id, quantity, reserved, available) VALUES ($1, $2, 0, $2)`,
		product.ID, req.Stock); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create inventory")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create product")
		return
	}

	h.invalidateDashboard(r)
	respondJSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || req.CategoryID == "" {
		respondError(w, http.StatusBadRequest, "name and categoryId are required")
		return
	}
	if req.Price < 0 {
		respondError(w, http.StatusBadRequest, "price must be non-negative")
		return
	}
	if req.Status != domain.ProductActive && req.Status != domain.ProductInactive {
		respondError(w, http.StatusBadRequest, "status must be active or inactive")
		return
	}
	// Stock is set on create and then only moves through the inventory
	// endpoints, where quantity and available change together.
	if req.Stock != 0 {
		respondError(w, http.StatusBadRequest, "stock is adjusted through the inventory endpoints")
		return
	}

	var product domain.Product
	err = h.db.Get(&product, `
		UPDATE products
		SET name = $1, description = $2, price = $3, category_id = $4, image_url = $5,
		    status = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING `+productColumns,
		req.Name, req.Description, req.Price, req.CategoryID, req.ImageURL, req.Status, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to update product")
		return
	}

	h.invalidateDashboard(r)
	respondJSON(w, http.StatusOK, product)
}

// deleteProduct hard-deletes only when no order references the product;
// otherwise it deactivates, so order history keeps its product rows.
func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var referenced bool
	if err := h.db.Get(&referenced, `SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id = $1)`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to check product usage")
		return
	}

	if referenced {
		res, err := h.db.Exec(`UPDATE products SET status = $1, updated_at = NOW() WHERE id = $2`,
			domain.ProductInactive, id)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "unable to deactivate product")
			return
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.invalidateDashboard(r)
		respondJSON(w, http.StatusOK, map[string]string{"action": "deactivated"})
		return
	}

	res, err := h.db.Exec(`DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete product")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	h.invalidateDashboard(r)
	respondJSON(w, http.StatusOK, map[string]string{"action": "deleted"})
}

const maxUploadSize = 10 << 20 // 10 MiB

// uploadProductImage forwards a multipart image to Cloudinary and
// returns its hosted URL.
func (h *Handler) uploadProductImage(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	if h.uploader == nil {
		respondError(w, http.StatusServiceUnavailable, "image upload is not configured")
		return
	}
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	name := uuid.NewString()
	if ext := filepath.Ext(header.Filename); ext != "" {
		name += ext
	}
	url, err := h.uploader.Upload(r.Context(), name, file)
	if err != nil {
		// Cloudinary is an upstream dependency, not this service.
		respondError(w, http.StatusBadGateway, "image upload failed")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"url": url})
}
