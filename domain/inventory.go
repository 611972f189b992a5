package domain

// Inventory tracks stock for a single product. The database enforces
// available = quantity - reserved, so every write must adjust the
// affected columns in the same statement.
type Inventory struct {
	ProductID int64  `db:"product_id" json:"productId"`
	Quantity  int64  `db:"quantity" json:"quantity"`
	Reserved  int64  `db:"reserved" json:"reserved"`
	Available int64  `db:"available" json:"available"`
	UpdatedAt string `db:"updated_at" json:"updatedAt"`
}
