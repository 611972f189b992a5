package domain

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

type User struct {
	ID        int64  `json:"id" db:"id"`
	Username  string `json:"username" db:"username"`
	Email     string `json:"email" db:"email"`
	Password  string `json:"password,omitempty" db:"password"`
	Role      string `json:"role" db:"role"`
	CreatedAt string `json:"createdAt,omitempty" db:"created_at"`
}
