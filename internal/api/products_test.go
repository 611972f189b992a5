package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"logodouman/domain"
)

func TestUpdateProductRejectsStockChanges(t *testing.T) {
	h := testHandler()
	token, err := h.generateToken(1, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("generateToken() error = %v", err)
	}

	body := `{"name":"Sac Noir","categoryId":"cat-1","price":2500000,"status":"active","stock":5}`
	req := httptest.NewRequest(http.MethodPut, "/api/products/1", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "inventory") {
		t.Errorf("body = %s, want a pointer to the inventory endpoints", rec.Body.String())
	}
}
