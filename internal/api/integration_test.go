package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"logodouman/domain"
	"logodouman/internal/migrations"
)

// These tests drive the router against a disposable Postgres pointed to
// by TEST_DATABASE_DSN and are skipped when it is not set.
func integrationHandler(t *testing.T) (*Handler, string) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)

	h := New(db, "test-secret", nil)

	var userID int64
	err = db.Get(&userID, `INSERT INTO users (username, email, password, role) VALUES ('tester', $1, 'x', 'admin') RETURNING id`,
		uuid.NewString()+"@example.com")
	require.NoError(t, err)
	token, err := h.generateToken(userID, domain.RoleAdmin)
	require.NoError(t, err)
	return h, token
}

func doRequest(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		payload = data
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createTestCategory(t *testing.T, router http.Handler, token string) domain.Category {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/categories", token, map[string]any{
		"code": strings.ToUpper("C" + uuid.NewString()[:8]),
		"name": "Sacs à main",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var category domain.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &category))
	return category
}

func createTestProduct(t *testing.T, router http.Handler, token, categoryID string, price, stock int64) domain.Product {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/products", token, map[string]any{
		"name":       "Sac Noir",
		"categoryId": categoryID,
		"price":      price,
		"stock":      stock,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var product domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	return product
}

func createTestCustomer(t *testing.T, router http.Handler, token string) domain.Customer {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/customers", token, map[string]any{
		"firstName": "Awa",
		"lastName":  "Diop",
		"email":     uuid.NewString() + "@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var customer domain.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &customer))
	return customer
}

func TestCategoryDeleteGuard(t *testing.T) {
	h, token := integrationHandler(t)
	router := h.Router()

	category := createTestCategory(t, router, token)
	product := createTestProduct(t, router, token, category.ID, 2500000, 3)

	rec := doRequest(t, router, http.MethodDelete, "/api/categories/"+category.ID, token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "category with products must not be deletable")

	rec = doRequest(t, router, http.MethodDelete, "/api/products/"+strconv.FormatInt(product.ID, 10), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"deleted"`)

	rec = doRequest(t, router, http.MethodDelete, "/api/categories/"+category.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestProductDeleteDeactivatesWhenReferenced(t *testing.T) {
	h, token := integrationHandler(t)
	router := h.Router()

	category := createTestCategory(t, router, token)
	product := createTestProduct(t, router, token, category.ID, 2500000, 5)
	customer := createTestCustomer(t, router, token)

	rec := doRequest(t, router, http.MethodPost, "/api/orders", token, map[string]any{
		"customerId": customer.ID,
		"items": []map[string]any{
			{"productId": product.ID, "quantity": 1, "unitPrice": product.Price},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doRequest(t, router, http.MethodDelete, "/api/products/"+strconv.FormatInt(product.ID, 10), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"deactivated"`)

	rec = doRequest(t, router, http.MethodGet, "/api/products/"+strconv.FormatInt(product.ID, 10), "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, domain.ProductInactive, updated.Status)
}

func TestCreateOrderReplayReturns200(t *testing.T) {
	h, token := integrationHandler(t)
	router := h.Router()

	category := createTestCategory(t, router, token)
	product := createTestProduct(t, router, token, category.ID, 2500000, 10)
	customer := createTestCustomer(t, router, token)

	payload, err := json.Marshal(map[string]any{
		"customerId": customer.ID,
		"items": []map[string]any{
			{"productId": product.ID, "quantity": 2, "unitPrice": product.Price},
		},
	})
	require.NoError(t, err)
	key := uuid.NewString()

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := send()
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	var a, b domain.Order
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, a.ID, b.ID, "replay must return the original order")
}

func TestRestockUnknownProduct(t *testing.T) {
	h, token := integrationHandler(t)
	rec := doRequest(t, h.Router(), http.MethodPut, "/api/inventory/999999999", token, map[string]any{"quantity": 5})
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
}
