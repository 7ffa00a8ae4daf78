package service

import (
	"context"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/protocol"
)

// Inventory is the store surface the services depend on. *store.Store
// implements it; tests substitute an in-memory fake.
type Inventory interface {
	CreateUser(ctx context.Context, username, password string) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	OrdersByUser(ctx context.Context, userID int64) ([]models.OrderHistoryEntry, error)
	CommitCheckout(ctx context.Context, userID int64, lines []models.CartLine) ([]models.StockLevel, error)
}

// Broadcaster fans one message out to every live session.
type Broadcaster interface {
	Broadcast(msg *protocol.ServerMessage)
}

// CatalogCache is the optional read cache in front of the product catalog.
type CatalogCache interface {
	GetProducts(ctx context.Context) ([]models.Product, bool, error)
	SetProducts(ctx context.Context, products []models.Product) error
	InvalidateProducts(ctx context.Context) error
}

// Publisher is the optional domain-event sink for downstream consumers.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, userID int64, items []models.CartLine) error
	PublishStockChanged(ctx context.Context, productID int64, newStock int) error
}
