package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"logodouman/domain"
)

type OrderItemInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
	UnitPrice int64 `json:"unitPrice"`
}

type CreateOrderInput struct {
	CustomerID     int64
	UserID         *int64
	Status         domain.OrderStatus
	TotalAmount    int64
	TaxAmount      int64
	ShippingCost   int64
	PromotionCode  string
	IdempotencyKey string
	Notes          string
	Items          []OrderItemInput
}

const orderColumns = `id, customer_id, user_id, status, total_amount, tax_amount, shipping_cost,
	discount_amount, promotion_code, idempotency_key, notes, created_at, updated_at`

// CreateOrder persists an order with its items and reserves inventory
// for every line, all inside one transaction. The returned bool is true
// when an idempotency key matched a previously created order and that
// order was returned instead of a new one.
func (s *Store) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, bool, error) {
	if in.IdempotencyKey != "" {
		if existing, err := s.getOrderByIdempotencyKey(ctx, in.IdempotencyKey); err == nil {
			return existing, true, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var itemsTotal int64
	for _, item := range in.Items {
		itemsTotal += item.UnitPrice * item.Quantity
	}
	// Callers may declare the expected total; a mismatch means the
	// client computed prices against stale data.
	if in.TotalAmount != 0 && in.TotalAmount != itemsTotal {
		return nil, false, fmt.Errorf("%w: declared %d, items sum to %d", ErrTotalMismatch, in.TotalAmount, itemsTotal)
	}

	var customerExists bool
	if err := tx.GetContext(ctx, &customerExists, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, in.CustomerID); err != nil {
		return nil, false, err
	}
	if !customerExists {
		return nil, false, ErrCustomerNotFound
	}

	var (
		discount  int64
		promoCode *string
	)
	if in.PromotionCode != "" {
		promo, err := applyPromotion(ctx, tx, in.PromotionCode, itemsTotal)
		if err != nil {
			return nil, false, err
		}
		discount = promo.Discount(itemsTotal)
		promoCode = &promo.Code
	}

	// Reserve stock per line. The WHERE clause makes the availability
	// check and the decrement one atomic statement, so two concurrent
	// orders cannot both take the last unit.
	for _, item := range in.Items {
		res, err := tx.ExecContext(ctx, `
			UPDATE inventory
			SET reserved = reserved + $1, available = available - $1, updated_at = NOW()
			WHERE product_id = $2 AND available >= $1`,
			item.Quantity, item.ProductID)
		if err != nil {
			return nil, false, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, false, err
		}
		if affected == 0 {
			var productExists bool
			if err := tx.GetContext(ctx, &productExists, `SELECT EXISTS(SELECT 1 FROM inventory WHERE product_id = $1)`, item.ProductID); err != nil {
				return nil, false, err
			}
			if !productExists {
				return nil, false, fmt.Errorf("%w: product %d", ErrProductNotFound, item.ProductID)
			}
			return nil, false, fmt.Errorf("%w: product %d", ErrInsufficientStock, item.ProductID)
		}
	}

	status := in.Status
	if status == "" {
		status = domain.OrderPending
	}

	order := &domain.Order{
		ID:             uuid.NewString(),
		CustomerID:     in.CustomerID,
		UserID:         in.UserID,
		Status:         status,
		TotalAmount:    itemsTotal,
		TaxAmount:      in.TaxAmount,
		ShippingCost:   in.ShippingCost,
		DiscountAmount: discount,
		PromotionCode:  promoCode,
		Notes:          in.Notes,
	}
	var idemKey *string
	if in.IdempotencyKey != "" {
		idemKey = &in.IdempotencyKey
		order.IdempotencyKey = idemKey
	}

	err = tx.QueryRowxContext(ctx, `
		INSERT INTO orders (id, customer_id, user_id, status, total_amount, tax_amount,
			shipping_cost, discount_amount, promotion_code, idempotency_key, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		order.ID, order.CustomerID, order.UserID, order.Status, order.TotalAmount,
		order.TaxAmount, order.ShippingCost, order.DiscountAmount, order.PromotionCode,
		idemKey, order.Notes).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if uniqueViolation(err) && in.IdempotencyKey != "" {
			// Lost the race against a concurrent identical request;
			// surface the winner's order.
			_ = tx.Rollback()
			existing, lookupErr := s.getOrderByIdempotencyKey(ctx, in.IdempotencyKey)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			return existing, true, nil
		}
		return nil, false, err
	}

	order.Items = make([]domain.OrderItem, 0, len(in.Items))
	for _, item := range in.Items {
		line := domain.OrderItem{
			OrderID:    order.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.UnitPrice * item.Quantity,
		}
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.TotalPrice).Scan(&line.ID)
		if err != nil {
			return nil, false, err
		}
		order.Items = append(order.Items, line)
	}

	// Orders created directly as CONFIRMED accrue customer aggregates
	// right away, same as the PENDING -> CONFIRMED transition.
	if status == domain.OrderConfirmed {
		if err := accrueCustomer(ctx, tx, order, +1); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}
	return order, false, nil
}

// UpdateOrderStatus applies a validated status transition and its
// inventory and customer side effects in one transaction.
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order domain.Order
	err = tx.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}

	if err := tx.SelectContext(ctx, &order.Items, `
		SELECT id, order_id, product_id, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`, id); err != nil {
		return nil, err
	}

	switch next {
	case domain.OrderConfirmed:
		if err := accrueCustomer(ctx, tx, &order, +1); err != nil {
			return nil, err
		}
	case domain.OrderCancelled:
		if order.Status.HoldsReservation() {
			for _, item := range order.Items {
				if _, err := tx.ExecContext(ctx, `
					UPDATE inventory
					SET reserved = reserved - $1, available = available + $1, updated_at = NOW()
					WHERE product_id = $2`, item.Quantity, item.ProductID); err != nil {
					return nil, err
				}
			}
		}
		if order.Status != domain.OrderPending {
			// Confirmed orders already accrued spend; give it back.
			if err := accrueCustomer(ctx, tx, &order, -1); err != nil {
				return nil, err
			}
		}
	case domain.OrderShipped:
		// The reservation becomes a real stock decrement.
		for _, item := range order.Items {
			if _, err := tx.ExecContext(ctx, `
				UPDATE inventory
				SET quantity = quantity - $1, reserved = reserved - $1, updated_at = NOW()
				WHERE product_id = $2`, item.Quantity, item.ProductID); err != nil {
				return nil, err
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2`,
				item.Quantity, item.ProductID); err != nil {
				return nil, err
			}
		}
	case domain.OrderRefunded:
		if err := accrueCustomer(ctx, tx, &order, -1); err != nil {
			return nil, err
		}
	}

	err = tx.QueryRowxContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2
		RETURNING updated_at`, next, id).Scan(&order.UpdatedAt)
	if err != nil {
		return nil, err
	}
	order.Status = next

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

// accrueCustomer adjusts the materialized spend and loyalty aggregates
// by the order's net amount. sign is +1 on confirmation and -1 on
// cancellation after confirmation or refund.
func accrueCustomer(ctx context.Context, tx *sqlx.Tx, order *domain.Order, sign int64) error {
	net := order.TotalAmount - order.DiscountAmount
	if net < 0 {
		net = 0
	}
	points := net / domain.LoyaltyDivisor
	_, err := tx.ExecContext(ctx, `
		UPDATE customers
		SET total_spent = total_spent + $1, loyalty_points = GREATEST(loyalty_points + $2, 0)
		WHERE id = $3`, sign*net, sign*points, order.CustomerID)
	return err
}

func (s *Store) getOrderByIdempotencyKey(ctx context.Context, key string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE idempotency_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.attachItems(ctx, []*domain.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder loads an order with its items.
func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.attachItems(ctx, []*domain.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

type OrderFilter struct {
	Status     domain.OrderStatus
	CustomerID int64
	Limit      int
}

// ListOrders returns orders newest first with items attached in one
// batched query.
func (s *Store) ListOrders(ctx context.Context, filter OrderFilter) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var (
		args    []any
		clauses []string
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY created_at DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	var orders []*domain.Order
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// UpdateOrderNotes updates the free-form notes field. Status changes go
// through UpdateOrderStatus only.
func (s *Store) UpdateOrderNotes(ctx context.Context, id, notes string) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE orders SET notes = $1, updated_at = NOW() WHERE id = $2`, notes, id)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *Store) attachItems(ctx context.Context, orders []*domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*domain.Order, len(orders))
	for i, order := range orders {
		ids[i] = order.ID
		byID[order.ID] = order
		order.Items = []domain.OrderItem{}
	}

	query, args, err := sqlx.In(`
		SELECT id, order_id, product_id, quantity, unit_price, total_price
		FROM order_items WHERE order_id IN (?) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	query = s.db.Rebind(query)

	var items []domain.OrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return err
	}
	for _, item := range items {
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return nil
}
