package api

import (
	"log"
	"net/http"

	"logodouman/domain"
	"logodouman/internal/store"
)

const dashboardCacheKey = "dashboard"

type dashboardPayload struct {
	Products      int64           `json:"products"`
	Categories    int64           `json:"categories"`
	Customers     int64           `json:"customers"`
	Orders        int64           `json:"orders"`
	PendingOrders int64           `json:"pendingOrders"`
	RevenueTotal  int64           `json:"revenueTotal"`
	RevenueMonth  int64           `json:"revenueMonth"`
	LowStock      []lowStockRow   `json:"lowStock"`
	RecentOrders  []*domain.Order `json:"recentOrders"`
	TopProducts   []topProductRow `json:"topProducts"`
}

type lowStockRow struct {
	ProductID int64  `db:"product_id" json:"productId"`
	Name      string `db:"name" json:"name"`
	Available int64  `db:"available" json:"available"`
}

type topProductRow struct {
	ProductID int64  `db:"product_id" json:"productId"`
	Name      string `db:"name" json:"name"`
	Quantity  int64  `db:"quantity" json:"quantity"`
	Revenue   int64  `db:"revenue" json:"revenue"`
}

// dashboard aggregates the admin landing-page numbers. The queries
// re-scan the tables on every call, so the payload is cached briefly
// when redis is configured.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin, domain.RoleManager) {
		return
	}
	ctx := r.Context()

	if h.cache != nil {
		var cached dashboardPayload
		hit, err := h.cache.Get(ctx, dashboardCacheKey, &cached)
		if err != nil {
			log.Printf("dashboard cache read: %v", err)
		} else if hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	var payload dashboardPayload

	counts := []struct {
		query string
		dest  *int64
	}{
		{`SELECT COUNT(*) FROM products`, &payload.Products},
		{`SELECT COUNT(*) FROM categories`, &payload.Categories},
		{`SELECT COUNT(*) FROM customers`, &payload.Customers},
		{`SELECT COUNT(*) FROM orders`, &payload.Orders},
		{`SELECT COUNT(*) FROM orders WHERE status = 'PENDING'`, &payload.PendingOrders},
		{`SELECT COALESCE(SUM(total_amount - discount_amount), 0) FROM orders
			WHERE status NOT IN ('CANCELLED', 'REFUNDED')`, &payload.RevenueTotal},
		{`SELECT COALESCE(SUM(total_amount - discount_amount), 0) FROM orders
			WHERE status NOT IN ('CANCELLED', 'REFUNDED')
			AND created_at >= date_trunc('month', CURRENT_DATE)`, &payload.RevenueMonth},
	}
	for _, c := range counts {
		if err := h.db.GetContext(ctx, c.dest, c.query); err != nil {
			respondError(w, http.StatusInternalServerError, "unable to build dashboard")
			return
		}
	}

	if err := h.db.SelectContext(ctx, &payload.LowStock, `
		SELECT i.product_id, p.name, i.available
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		WHERE i.available <= 5 AND p.status = 'active'
		ORDER BY i.available ASC
		LIMIT 10`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build dashboard")
		return
	}
	if payload.LowStock == nil {
		payload.LowStock = []lowStockRow{}
	}

	if err := h.db.SelectContext(ctx, &payload.TopProducts, `
		SELECT oi.product_id, p.name,
		       SUM(oi.quantity) AS quantity,
		       SUM(oi.total_price) AS revenue
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status NOT IN ('CANCELLED', 'REFUNDED')
		GROUP BY oi.product_id, p.name
		ORDER BY quantity DESC
		LIMIT 5`); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build dashboard")
		return
	}
	if payload.TopProducts == nil {
		payload.TopProducts = []topProductRow{}
	}

	recent, err := h.store.ListOrders(ctx, store.OrderFilter{Limit: 5})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to build dashboard")
		return
	}
	payload.RecentOrders = recent
	if payload.RecentOrders == nil {
		payload.RecentOrders = []*domain.Order{}
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, dashboardCacheKey, payload); err != nil {
			log.Printf("dashboard cache write: %v", err)
		}
	}
	respondJSON(w, http.StatusOK, payload)
}

// invalidateDashboard drops cached dashboard snapshots after a write.
// A cache miss just means the next dashboard call recomputes.
func (h *Handler) invalidateDashboard(r *http.Request) {
	if h.cache == nil {
		return
	}
	if err := h.cache.DeletePattern(r.Context(), dashboardCacheKey+"*"); err != nil {
		log.Printf("dashboard cache invalidate: %v", err)
	}
}
