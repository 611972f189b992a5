package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"logodouman/domain"
	"logodouman/internal/cache"
	"logodouman/internal/images"
	"logodouman/internal/store"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	db       *sqlx.DB
	store    *store.Store
	secret   string
	origins  []string
	cache    *cache.Cache    // nil when redis is not configured
	uploader images.Uploader // nil when cloudinary is not configured
}

// New constructs a Handler.
func New(db *sqlx.DB, secret string, origins []string) *Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{db: db, store: store.New(db), secret: secret, origins: origins}
}

// WithCache enables dashboard caching.
func (h *Handler) WithCache(c *cache.Cache) *Handler {
	h.cache = c
	return h
}

// WithUploader enables image upload.
func (h *Handler) WithUploader(u images.Uploader) *Handler {
	h.uploader = u
	return h
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.signup)
			r.Post("/login", h.login)
			r.Group(func(protected chi.Router) {
				protected.Use(h.authMiddleware)
				protected.Get("/verify", h.verify)
				protected.Get("/profile", h.profile)
			})
		})

		// Public storefront reads and checkout-time promotion check.
		r.Get("/categories", h.listCategories)
		r.Get("/categories/{id}", h.getCategory)
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)
		r.Post("/promotions/validate", h.validatePromotion)

		r.Group(func(pr chi.Router) {
			pr.Use(h.authMiddleware)

			pr.Post("/categories", h.createCategory)
			pr.Put("/categories/{id}", h.updateCategory)
			pr.Delete("/categories/{id}", h.deleteCategory)

			pr.Post("/products", h.createProduct)
			pr.Post("/products/upload", h.uploadProductImage)
			pr.Put("/products/{id}", h.updateProduct)
			pr.Delete("/products/{id}", h.deleteProduct)

			pr.Route("/inventory", func(r chi.Router) {
				r.Get("/", h.listInventory)
				r.Put("/{productId}", h.restockInventory)
			})

			pr.Route("/customers", func(r chi.Router) {
				r.Get("/", h.listCustomers)
				r.Post("/", h.createCustomer)
				r.Get("/analytics/segmentation", h.customerSegmentation)
				r.Get("/{id}", h.getCustomer)
				r.Put("/{id}", h.updateCustomer)
				r.Delete("/{id}", h.deleteCustomer)
				r.Get("/{id}/analytics", h.customerAnalytics)
			})

			pr.Route("/orders", func(r chi.Router) {
				r.Get("/", h.listOrders)
				r.Post("/", h.createOrder)
				r.Get("/stats/overview", h.orderStats)
				r.Get("/{id}", h.getOrder)
				r.Put("/{id}", h.updateOrder)
				r.Put("/{id}/status", h.updateOrderStatus)
			})

			pr.Route("/promotions", func(r chi.Router) {
				r.Get("/", h.listPromotions)
				r.Post("/", h.createPromotion)
				r.Get("/{id}", h.getPromotion)
				r.Put("/{id}", h.updatePromotion)
				r.Delete("/{id}", h.deletePromotion)
			})

			pr.Get("/dashboard", h.dashboard)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondStoreError maps the store's sentinel errors onto HTTP status
// codes. Anything outside the closed set is a 500 with the detail kept
// server-side.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, store.ErrCustomerNotFound),
		errors.Is(err, store.ErrProductNotFound),
		errors.Is(err, store.ErrPromotionNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrTotalMismatch),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, domain.ErrPromotionInactive),
		errors.Is(err, domain.ErrPromotionNotOpen),
		errors.Is(err, domain.ErrPromotionMinAmount),
		errors.Is(err, domain.ErrPromotionExhausted):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// isUniqueViolation is Postgres SQLSTATE 23505, used by the plain CRUD
// handlers for duplicate emails and codes.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Helpers

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
