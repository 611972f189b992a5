package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"logodouman/domain"
)

const promotionColumns = `id, code, name, type, value, min_amount, max_uses, used_count,
	active, start_date, end_date, created_at`

// GetPromotionByCode is the read-only lookup used by the validate
// endpoint. It never touches used_count.
func (s *Store) GetPromotionByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	var promo domain.Promotion
	err := s.db.GetContext(ctx, &promo,
		`SELECT `+promotionColumns+` FROM promotions WHERE code = $1`, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	return &promo, nil
}

// applyPromotion validates and consumes one use of a promotion inside
// an order-creation transaction. The row is locked so the usage cap
// holds under concurrent checkouts, and the counter guard is repeated
// in the UPDATE itself.
func applyPromotion(ctx context.Context, tx *sqlx.Tx, code string, orderAmount int64) (*domain.Promotion, error) {
	var promo domain.Promotion
	err := tx.GetContext(ctx, &promo,
		`SELECT `+promotionColumns+` FROM promotions WHERE code = $1 FOR UPDATE`,
		strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	if err := promo.Validate(time.Now(), orderAmount); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE promotions SET used_count = used_count + 1
		WHERE id = $1 AND (max_uses = 0 OR used_count < max_uses)`, promo.ID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, domain.ErrPromotionExhausted
	}
	promo.UsedCount++
	return &promo, nil
}
