package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

type Admin struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"hashed_password"`
	CreatedAt      time.Time `json:"created_at"`
}

type Order struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	ServiceID int64          `json:"service_id"`
	AdminID   pgtype.Int8    `json:"admin_id"`
	Items     string         `json:"items"`
	WeightKg  pgtype.Numeric `json:"weight_kg"`
	Amount    pgtype.Numeric `json:"amount"`
	OrderDate time.Time      `json:"order_date"`
	Status    string         `json:"status"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type Report struct {
	ID        int64          `json:"id"`
	AdminID   int64          `json:"admin_id"`
	OrderID   int64          `json:"order_id"`
	Amount    pgtype.Numeric `json:"amount"`
	CreatedAt time.Time      `json:"created_at"`
}

type Service struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Price       pgtype.Numeric `json:"price"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type Staff struct {
	ID        int64     `json:"id"`
	AdminID   int64     `json:"admin_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID             int64       `json:"id"`
	Username       string      `json:"username"`
	Email          string      `json:"email"`
	Contact        pgtype.Text `json:"contact"`
	Address        pgtype.Text `json:"address"`
	HashedPassword string      `json:"hashed_password"`
	RegisteredAt   time.Time   `json:"registered_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
