package domain

type Category struct {
	ID          string `db:"id" json:"id"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description,omitempty"`
	CreatedAt   string `db:"created_at" json:"createdAt"`

	// Populated on list/detail queries, not stored.
	ProductsCount int64 `db:"products_count" json:"productsCount"`
}
