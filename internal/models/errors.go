package models

import (
	"errors"
	"fmt"
)

// Validation failures reported as structured error replies, never fatal to
// the connection.
var (
	ErrUnknownUser        = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
)

// InsufficientStockError fails a whole checkout when one line asks for more
// than is available. A nonexistent product is reported the same way.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product ID %d", e.ProductID)
}
