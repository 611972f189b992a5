package domain

import (
	"errors"
	"time"
)

type PromotionType string

const (
	PromotionPercentage   PromotionType = "PERCENTAGE"
	PromotionFixedAmount  PromotionType = "FIXED_AMOUNT"
	PromotionFreeShipping PromotionType = "FREE_SHIPPING"
)

// Promotion rule failures. These are surfaced as reasons by the
// validate endpoint and as rejections during order creation.
var (
	ErrPromotionInactive  = errors.New("promotion is not active")
	ErrPromotionNotOpen   = errors.New("promotion is outside its date window")
	ErrPromotionMinAmount = errors.New("order amount below promotion minimum")
	ErrPromotionExhausted = errors.New("promotion usage limit reached")
)

type Promotion struct {
	ID        int64         `db:"id" json:"id"`
	Code      string        `db:"code" json:"code"`
	Name      string        `db:"name" json:"name"`
	Type      PromotionType `db:"type" json:"type"`
	Value     int64         `db:"value" json:"value"`
	MinAmount int64         `db:"min_amount" json:"minAmount"`
	MaxUses   int64         `db:"max_uses" json:"maxUses"`
	UsedCount int64         `db:"used_count" json:"usedCount"`
	Active    bool          `db:"active" json:"active"`
	StartDate time.Time     `db:"start_date" json:"startDate"`
	EndDate   time.Time     `db:"end_date" json:"endDate"`
	CreatedAt time.Time     `db:"created_at" json:"createdAt"`
}

// Validate checks every applicability rule against an order amount.
// It never mutates the usage counter; that happens only when the code
// is applied to a created order.
func (p Promotion) Validate(now time.Time, orderAmount int64) error {
	if !p.Active {
		return ErrPromotionInactive
	}
	if now.Before(p.StartDate) || now.After(p.EndDate) {
		return ErrPromotionNotOpen
	}
	if orderAmount < p.MinAmount {
		return ErrPromotionMinAmount
	}
	if p.MaxUses > 0 && p.UsedCount >= p.MaxUses {
		return ErrPromotionExhausted
	}
	return nil
}

// Discount computes the discount in minor units, clamped to the order
// amount. FREE_SHIPPING discounts shipping, not the item total, so it
// contributes zero here.
func (p Promotion) Discount(orderAmount int64) int64 {
	var discount int64
	switch p.Type {
	case PromotionPercentage:
		discount = orderAmount * p.Value / 100
	case PromotionFixedAmount:
		discount = p.Value
	case PromotionFreeShipping:
		discount = 0
	}
	if discount > orderAmount {
		discount = orderAmount
	}
	if discount < 0 {
		discount = 0
	}
	return discount
}
