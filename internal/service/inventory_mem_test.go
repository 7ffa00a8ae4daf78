package service

import (
	"context"
	"sync"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/protocol"

	"github.com/shopspring/decimal"
)

// memInventory is an in-memory Inventory with the same atomicity contract as
// the real store: a checkout either fully commits or leaves nothing behind.
type memInventory struct {
	mu        sync.Mutex
	users     map[string]models.User
	products  map[int64]*models.Product
	orders    []models.Order
	nextUser  int64
	nextOrder int64
}

func newMemInventory() *memInventory {
	return &memInventory{
		users:    make(map[string]models.User),
		products: make(map[int64]*models.Product),
	}
}

func (m *memInventory) addProduct(id int64, name string, price string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = &models.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func (m *memInventory) stockOf(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memInventory) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memInventory) CreateUser(_ context.Context, username, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[username]; exists {
		return models.ErrUsernameTaken
	}
	m.nextUser++
	m.users[username] = models.User{ID: m.nextUser, Username: username, Password: password}
	return nil
}

func (m *memInventory) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return nil, models.ErrUnknownUser
	}
	return &u, nil
}

func (m *memInventory) Authenticate(_ context.Context, username, password string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok || u.Password != password {
		return nil, models.ErrInvalidCredentials
	}
	return &u, nil
}

func (m *memInventory) ListProducts(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memInventory) OrdersByUser(_ context.Context, userID int64) ([]models.OrderHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OrderHistoryEntry
	for _, o := range m.orders {
		if o.UserID != userID {
			continue
		}
		out = append(out, models.OrderHistoryEntry{
			ID:          o.ID,
			ProductID:   o.ProductID,
			ProductName: m.products[o.ProductID].Name,
			Quantity:    o.Quantity,
			OrderTime:   o.OrderTime,
		})
	}
	return out, nil
}

func (m *memInventory) CommitCheckout(_ context.Context, userID int64, lines []models.CartLine) ([]models.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate the whole cart against a scratch copy before touching
	// anything, so a failing line leaves no partial effects.
	scratch := make(map[int64]int, len(lines))
	for _, line := range lines {
		p, ok := m.products[line.ProductID]
		if !ok {
			return nil, &models.InsufficientStockError{ProductID: line.ProductID}
		}
		if _, seen := scratch[line.ProductID]; !seen {
			scratch[line.ProductID] = p.Stock
		}
		if scratch[line.ProductID] < line.Quantity {
			return nil, &models.InsufficientStockError{ProductID: line.ProductID}
		}
		scratch[line.ProductID] -= line.Quantity
	}

	for _, line := range lines {
		m.products[line.ProductID].Stock -= line.Quantity
		m.nextOrder++
		m.orders = append(m.orders, models.Order{
			ID:        m.nextOrder,
			UserID:    userID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			OrderTime: time.Date(2024, 5, 17, 12, 0, 0, 0, time.UTC),
		})
	}

	levels := make([]models.StockLevel, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true
		levels = append(levels, models.StockLevel{
			ProductID: line.ProductID,
			Stock:     m.products[line.ProductID].Stock,
		})
	}
	return levels, nil
}

// chanBroadcaster collects broadcast messages for assertions.
type chanBroadcaster struct {
	ch chan *protocol.ServerMessage
}

func newChanBroadcaster() *chanBroadcaster {
	return &chanBroadcaster{ch: make(chan *protocol.ServerMessage, 64)}
}

func (b *chanBroadcaster) Broadcast(msg *protocol.ServerMessage) {
	b.ch <- msg
}

// memCache is a single-slot CatalogCache.
type memCache struct {
	mu       sync.Mutex
	products []models.Product
	filled   bool
}

func (c *memCache) GetProducts(_ context.Context) ([]models.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.filled {
		return nil, false, nil
	}
	return c.products, true, nil
}

func (c *memCache) SetProducts(_ context.Context, products []models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = products
	c.filled = true
	return nil
}

func (c *memCache) InvalidateProducts(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products = nil
	c.filled = false
	return nil
}
