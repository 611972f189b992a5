package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"logodouman/domain"
	"logodouman/internal/migrations"
)

// These tests run against a disposable Postgres pointed to by
// TEST_DATABASE_DSN and are skipped when it is not set.
func testStore(t *testing.T) (*Store, *sqlx.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	migrations.Run(db)
	return New(db), db
}

func seedCustomer(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	var id int64
	err := db.Get(&id, `INSERT INTO customers (first_name, last_name, email) VALUES ('Awa', 'Diop', $1) RETURNING id`,
		uuid.NewString()+"@example.com")
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return id
}

func seedProduct(t *testing.T, db *sqlx.DB, price, stock int64) int64 {
	t.Helper()
	var categoryID string
	err := db.Get(&categoryID, `INSERT INTO categories (code, name) VALUES ($1, 'Sacs à main') RETURNING id`,
		strings.ToUpper("C"+uuid.NewString()[:8]))
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}
	var productID int64
	err = db.Get(&productID, `
		INSERT INTO products (name, price, category_id, stock)
		VALUES ('Sac Noir', $1, $2, $3) RETURNING id`, price, categoryID, stock)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO inventory (product_id, quantity, reserved, available) VALUES ($1, $2, 0, $2)`,
		productID, stock); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	return productID
}

func seedPromotion(t *testing.T, db *sqlx.DB, maxUses int64) string {
	t.Helper()
	code := strings.ToUpper("P" + uuid.NewString()[:8])
	now := time.Now()
	_, err := db.Exec(`
		INSERT INTO promotions (code, name, type, value, min_amount, max_uses, active, start_date, end_date)
		VALUES ($1, 'Promo test', 'PERCENTAGE', 10, 0, $2, TRUE, $3, $4)`,
		code, maxUses, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("seed promotion: %v", err)
	}
	return code
}

func availableStock(t *testing.T, db *sqlx.DB, productID int64) int64 {
	t.Helper()
	var n int64
	if err := db.Get(&n, `SELECT available FROM inventory WHERE product_id = $1`, productID); err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	return n
}

func TestCreateOrderTotalMismatch(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db)
	productID := seedProduct(t, db, 2500000, 10)

	_, _, err := s.CreateOrder(ctx, CreateOrderInput{
		CustomerID:  customerID,
		TotalAmount: 4999999,
		Items:       []OrderItemInput{{ProductID: productID, Quantity: 2, UnitPrice: 2500000}},
	})
	if !errors.Is(err, ErrTotalMismatch) {
		t.Fatalf("CreateOrder() error = %v, want ErrTotalMismatch", err)
	}
	if got := availableStock(t, db, productID); got != 10 {
		t.Errorf("available = %d, want 10 after rejected order", got)
	}
}

func TestCreateOrderIdempotentReplay(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db)
	productID := seedProduct(t, db, 2500000, 10)

	in := CreateOrderInput{
		CustomerID:     customerID,
		IdempotencyKey: uuid.NewString(),
		Items:          []OrderItemInput{{ProductID: productID, Quantity: 2, UnitPrice: 2500000}},
	}
	first, replayed, err := s.CreateOrder(ctx, in)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if replayed {
		t.Fatal("first create reported as replayed")
	}

	second, replayed, err := s.CreateOrder(ctx, in)
	if err != nil {
		t.Fatalf("replayed CreateOrder() error = %v", err)
	}
	if !replayed {
		t.Fatal("second create with the same key should be a replay")
	}
	if second.ID != first.ID {
		t.Errorf("replay returned order %s, want %s", second.ID, first.ID)
	}
	if got := availableStock(t, db, productID); got != 8 {
		t.Errorf("available = %d, want 8: replay must not reserve again", got)
	}
}

func TestCreateOrderInsufficientStock(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db)
	productID := seedProduct(t, db, 1000, 1)

	_, _, err := s.CreateOrder(ctx, CreateOrderInput{
		CustomerID: customerID,
		Items:      []OrderItemInput{{ProductID: productID, Quantity: 2, UnitPrice: 1000}},
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("CreateOrder() error = %v, want ErrInsufficientStock", err)
	}
	if got := availableStock(t, db, productID); got != 1 {
		t.Errorf("available = %d, want 1 after rolled-back order", got)
	}

	_, _, err = s.CreateOrder(ctx, CreateOrderInput{
		CustomerID: customerID,
		Items:      []OrderItemInput{{ProductID: productID + 1_000_000, Quantity: 1, UnitPrice: 1000}},
	})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("CreateOrder() error = %v, want ErrProductNotFound", err)
	}
}

func TestPromotionConsumedOncePerOrder(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db)
	productID := seedProduct(t, db, 7000000, 10)
	code := seedPromotion(t, db, 1)

	order, _, err := s.CreateOrder(ctx, CreateOrderInput{
		CustomerID:    customerID,
		PromotionCode: code,
		Items:         []OrderItemInput{{ProductID: productID, Quantity: 1, UnitPrice: 7000000}},
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.DiscountAmount != 700000 {
		t.Errorf("discount = %d, want 700000", order.DiscountAmount)
	}

	var usedCount int64
	if err := db.Get(&usedCount, `SELECT used_count FROM promotions WHERE code = $1`, code); err != nil {
		t.Fatalf("read promotion: %v", err)
	}
	if usedCount != 1 {
		t.Errorf("used_count = %d, want 1", usedCount)
	}

	_, _, err = s.CreateOrder(ctx, CreateOrderInput{
		CustomerID:    customerID,
		PromotionCode: code,
		Items:         []OrderItemInput{{ProductID: productID, Quantity: 1, UnitPrice: 7000000}},
	})
	if !errors.Is(err, domain.ErrPromotionExhausted) {
		t.Fatalf("CreateOrder() error = %v, want ErrPromotionExhausted", err)
	}
	if err := db.Get(&usedCount, `SELECT used_count FROM promotions WHERE code = $1`, code); err != nil {
		t.Fatalf("read promotion: %v", err)
	}
	if usedCount != 1 {
		t.Errorf("used_count = %d after rejected order, want 1", usedCount)
	}
}

func TestUpdateOrderStatusSideEffects(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	customerID := seedCustomer(t, db)
	productID := seedProduct(t, db, 2000000, 5)

	order, _, err := s.CreateOrder(ctx, CreateOrderInput{
		CustomerID: customerID,
		Items:      []OrderItemInput{{ProductID: productID, Quantity: 2, UnitPrice: 2000000}},
	})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if got := availableStock(t, db, productID); got != 3 {
		t.Fatalf("available = %d, want 3 after reservation", got)
	}

	if _, err := s.UpdateOrderStatus(ctx, order.ID, domain.OrderConfirmed); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	var spent, points int64
	if err := db.QueryRowx(`SELECT total_spent, loyalty_points FROM customers WHERE id = $1`, customerID).
		Scan(&spent, &points); err != nil {
		t.Fatalf("read customer: %v", err)
	}
	if spent != 4000000 || points != 4000 {
		t.Errorf("total_spent = %d, loyalty_points = %d, want 4000000 and 4000", spent, points)
	}

	if _, err := s.UpdateOrderStatus(ctx, order.ID, domain.OrderCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := availableStock(t, db, productID); got != 5 {
		t.Errorf("available = %d, want 5 after cancellation", got)
	}
	if err := db.QueryRowx(`SELECT total_spent, loyalty_points FROM customers WHERE id = $1`, customerID).
		Scan(&spent, &points); err != nil {
		t.Fatalf("read customer: %v", err)
	}
	if spent != 0 || points != 0 {
		t.Errorf("total_spent = %d, loyalty_points = %d, want 0 after cancellation", spent, points)
	}

	if _, err := s.UpdateOrderStatus(ctx, order.ID, domain.OrderConfirmed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("transition from CANCELLED: got %v, want ErrInvalidTransition", err)
	}
}
