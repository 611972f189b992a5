package domain

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
	OrderRefunded   OrderStatus = "REFUNDED"
)

// orderTransitions is the allowed status graph. CANCELLED is reachable
// only while the order still holds a reservation; REFUNDED only after
// delivery. Terminal states have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderConfirmed, OrderCancelled},
	OrderConfirmed:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
	OrderDelivered:  {OrderRefunded},
	OrderCancelled:  {},
	OrderRefunded:   {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HoldsReservation reports whether inventory is still reserved for an
// order in this status. Reservations are consumed at SHIPPED and
// released at CANCELLED.
func (s OrderStatus) HoldsReservation() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing:
		return true
	}
	return false
}

// Order monetary fields are integers in minor currency units.
// TotalAmount is the sum of item line totals; tax, shipping and
// discount are carried separately.
type Order struct {
	ID             string      `db:"id" json:"id"`
	CustomerID     int64       `db:"customer_id" json:"customerId"`
	UserID         *int64      `db:"user_id" json:"userId,omitempty"`
	Status         OrderStatus `db:"status" json:"status"`
	TotalAmount    int64       `db:"total_amount" json:"totalAmount"`
	TaxAmount      int64       `db:"tax_amount" json:"taxAmount"`
	ShippingCost   int64       `db:"shipping_cost" json:"shippingCost"`
	DiscountAmount int64       `db:"discount_amount" json:"discountAmount"`
	PromotionCode  *string     `db:"promotion_code" json:"promotionCode,omitempty"`
	IdempotencyKey *string     `db:"idempotency_key" json:"-"`
	Notes          string      `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`

	Items []OrderItem `db:"-" json:"items"`
}

type OrderItem struct {
	ID         int64  `db:"id" json:"id"`
	OrderID    string `db:"order_id" json:"orderId"`
	ProductID  int64  `db:"product_id" json:"productId"`
	Quantity   int64  `db:"quantity" json:"quantity"`
	UnitPrice  int64  `db:"unit_price" json:"unitPrice"`
	TotalPrice int64  `db:"total_price" json:"totalPrice"`
}
