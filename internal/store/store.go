// Package store holds the data-access layer for the order, inventory
// and promotion flow. Every operation returns errors from a closed set
// of sentinel variants so the HTTP layer can map them to status codes
// without inspecting driver internals.
package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrTotalMismatch     = errors.New("declared total does not match item totals")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrConflict          = errors.New("conflict")
)

// Store wraps the database for multi-statement flows.
type Store struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// uniqueViolation is Postgres SQLSTATE 23505.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
