package migrations

import (
	"log"

	"github.com/jmoiron/sqlx"
)

// Run creates the database schema required for the storefront backend.
// The inventory CHECK constraints are load-bearing: they keep
// available = quantity - reserved from drifting under concurrent or
// partial writes.
func Run(db *sqlx.DB) {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL CHECK (role IN ('admin', 'manager')),
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT DEFAULT '',
			price BIGINT NOT NULL CHECK (price >= 0),
			category_id TEXT NOT NULL REFERENCES categories(id),
			image_url TEXT DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'inactive')),
			stock BIGINT NOT NULL DEFAULT 0 CHECK (stock >= 0),
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS inventory (
			product_id BIGINT PRIMARY KEY REFERENCES products(id) ON DELETE CASCADE,
			quantity BIGINT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			reserved BIGINT NOT NULL DEFAULT 0 CHECK (reserved >= 0),
			available BIGINT NOT NULL DEFAULT 0 CHECK (available >= 0),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			CHECK (available = quantity - reserved)
		);`,
		`CREATE TABLE IF NOT EXISTS customers (
			id SERIAL PRIMARY KEY,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT DEFAULT '',
			address TEXT DEFAULT '',
			city TEXT DEFAULT '',
			country TEXT DEFAULT '',
			total_spent BIGINT NOT NULL DEFAULT 0,
			loyalty_points BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS promotions (
			id SERIAL PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('PERCENTAGE', 'FIXED_AMOUNT', 'FREE_SHIPPING')),
			value BIGINT NOT NULL CHECK (value >= 0),
			min_amount BIGINT NOT NULL DEFAULT 0,
			max_uses BIGINT NOT NULL DEFAULT 0,
			used_count BIGINT NOT NULL DEFAULT 0,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			start_date TIMESTAMPTZ NOT NULL,
			end_date TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			CHECK (max_uses = 0 OR used_count <= max_uses)
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			customer_id BIGINT NOT NULL REFERENCES customers(id),
			user_id BIGINT REFERENCES users(id),
			status TEXT NOT NULL DEFAULT 'PENDING' CHECK (status IN
				('PENDING', 'CONFIRMED', 'PROCESSING', 'SHIPPED', 'DELIVERED', 'CANCELLED', 'REFUNDED')),
			total_amount BIGINT NOT NULL CHECK (total_amount >= 0),
			tax_amount BIGINT NOT NULL DEFAULT 0 CHECK (tax_amount >= 0),
			shipping_cost BIGINT NOT NULL DEFAULT 0 CHECK (shipping_cost >= 0),
			discount_amount BIGINT NOT NULL DEFAULT 0 CHECK (discount_amount >= 0),
			promotion_code TEXT,
			idempotency_key TEXT UNIQUE,
			notes TEXT DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			product_id BIGINT NOT NULL REFERENCES products(id),
			quantity BIGINT NOT NULL CHECK (quantity > 0),
			unit_price BIGINT NOT NULL CHECK (unit_price >= 0),
			total_price BIGINT NOT NULL CHECK (total_price >= 0)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_created ON orders(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatalf("migration failed: %v", err)
		}
	}
}
