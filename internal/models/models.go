package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a registered account
type User struct {
	ID       int64  `db:"id" json:"id"`
	Username string `db:"username" json:"username"`
	Password string `db:"password" json:"-"`
}

// Product represents a product in the catalog
type Product struct {
	ID    int64           `db:"id" json:"id"`
	Name  string          `db:"name" json:"name"`
	Price decimal.Decimal `db:"price" json:"price"`
	Stock int             `db:"stock" json:"stock"`
}

// Order represents a committed purchase of one product
type Order struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ProductID int64     `db:"product_id" json:"product_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	OrderTime time.Time `db:"order_time" json:"order_time"`
}

// OrderHistoryEntry is an order row joined with its product name,
// as returned by get_history
type OrderHistoryEntry struct {
	ID          int64     `db:"id" json:"id"`
	ProductID   int64     `db:"product_id" json:"product_id"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	OrderTime   time.Time `db:"order_time" json:"order_time"`
}

// CartLine is one requested line of a checkout
type CartLine struct {
	ProductID int64 `json:"id"`
	Quantity  int   `json:"quantity"`
}

// StockLevel is the post-decrement stock of a product touched by a checkout
type StockLevel struct {
	ProductID int64 `json:"product_id"`
	Stock     int   `json:"stock"`
}
