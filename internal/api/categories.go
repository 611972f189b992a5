package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"logodouman/domain"
)

type categoryRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	var categories []domain.Category
	err := h.db.Select(&categories, `
		SELECT c.id, c.code, c.name, c.description, c.created_at,
		       COUNT(p.id) AS products_count
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		GROUP BY c.id
		ORDER BY c.name`)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to list categories")
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var category domain.Category
	err := h.db.Get(&category, `
		SELECT c.id, c.code, c.name, c.description, c.created_at,
		       (SELECT COUNT(*) FROM products p WHERE p.category_id = c.id) AS products_count
		FROM categories c WHERE c.id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "category not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load category")
		return
	}
	respondJSON(w, http.StatusOK, category)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	var category domain.Category
	err := h.db.Get(&category, `
		INSERT INTO categories (code, name, description) VALUES ($1, $2, $3)
		RETURNING id, code, name, description, created_at, 0 AS products_count`,
		req.Code, req.Name, req.Description)
	if err != nil {
		if isUniqueViolation(err) {
			respondError(w, http.StatusConflict, "category code already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to create category")
		}
		return
	}
	respondJSON(w, http.StatusCreated, category)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	id := chi.URLParam(r, "id")
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	res, err := h.db.Exec(`UPDATE categories SET code = $1, name = $2, description = $3 WHERE id = $4`,
		req.Code, req.Name, req.Description, id)
	if err != nil {
		if isUniqueViolation(err) {
			respondError(w, http.StatusConflict, "category code already exists")
		} else {
			respondError(w, http.StatusInternalServerError, "unable to update category")
		}
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// deleteCategory refuses to delete a category that still has products.
func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id := chi.URLParam(r, "id")

	var productsCount int64
	if err := h.db.Get(&productsCount, `SELECT COUNT(*) FROM products WHERE category_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to check category usage")
		return
	}
	if productsCount > 0 {
		respondError(w, http.StatusBadRequest, "category still has products")
		return
	}

	res, err := h.db.Exec(`DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to delete category")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, "category not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
