package domain

import "time"

// LoyaltyDivisor converts spend in minor units to loyalty points:
// one point per 1000 minor units, truncated.
const LoyaltyDivisor = 1000

type Customer struct {
	ID            int64  `db:"id" json:"id"`
	FirstName     string `db:"first_name" json:"firstName"`
	LastName      string `db:"last_name" json:"lastName"`
	Email         string `db:"email" json:"email"`
	Phone         string `db:"phone" json:"phone,omitempty"`
	Address       string `db:"address" json:"address,omitempty"`
	City          string `db:"city" json:"city,omitempty"`
	Country       string `db:"country" json:"country,omitempty"`
	TotalSpent    int64  `db:"total_spent" json:"totalSpent"`
	LoyaltyPoints int64  `db:"loyalty_points" json:"loyaltyPoints"`
	CreatedAt     string `db:"created_at" json:"createdAt"`
}

// CustomerAnalytics is computed by aggregation on read, never stored,
// so it cannot drift from the orders table.
type CustomerAnalytics struct {
	CustomerID    int64      `db:"customer_id" json:"customerId"`
	OrdersCount   int64      `db:"orders_count" json:"ordersCount"`
	LifetimeValue int64      `db:"lifetime_value" json:"lifetimeValue"`
	AvgOrderValue int64      `db:"avg_order_value" json:"avgOrderValue"`
	LastOrderAt   *time.Time `db:"last_order_at" json:"lastOrderAt,omitempty"`
}

type CustomerSegment struct {
	Segment    string `db:"segment" json:"segment"`
	Customers  int64  `db:"customers" json:"customers"`
	TotalSpent int64  `db:"total_spent" json:"totalSpent"`
}
