package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"logodouman/domain"
	"logodouman/internal/store"
)

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c","bogus":1}`))
	var dest struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(req, &dest); err == nil {
		t.Error("decodeJSON should reject unknown fields")
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.c"}`))
	if err := decodeJSON(req, &dest); err != nil {
		t.Fatalf("decodeJSON() error = %v", err)
	}
	if dest.Email != "a@b.c" {
		t.Errorf("decoded email = %q, want a@b.c", dest.Email)
	}
}

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, http.StatusBadRequest, "boom")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
	if !strings.Contains(rec.Body.String(), `"error":"boom"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRespondStoreError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrCustomerNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: product 9", store.ErrProductNotFound), http.StatusNotFound},
		{store.ErrPromotionNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: product 9", store.ErrInsufficientStock), http.StatusConflict},
		{store.ErrConflict, http.StatusConflict},
		{store.ErrTotalMismatch, http.StatusBadRequest},
		{fmt.Errorf("%w: DELIVERED -> PENDING", store.ErrInvalidTransition), http.StatusBadRequest},
		{domain.ErrPromotionInactive, http.StatusBadRequest},
		{domain.ErrPromotionExhausted, http.StatusBadRequest},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		respondStoreError(rec, tc.err)
		if rec.Code != tc.want {
			t.Errorf("respondStoreError(%v) = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}
