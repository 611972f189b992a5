package domain

const (
	ProductActive   = "active"
	ProductInactive = "inactive"
)

// Product prices are integers in minor currency units.
type Product struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	Price       int64  `db:"price" json:"price"`
	CategoryID  string `db:"category_id" json:"categoryId"`
	ImageURL    string `db:"image_url" json:"imageUrl,omitempty"`
	Status      string `db:"status" json:"status"`
	Stock       int64  `db:"stock" json:"stock"`
	CreatedAt   string `db:"created_at" json:"createdAt"`
	UpdatedAt   string `db:"updated_at" json:"updatedAt"`
}
