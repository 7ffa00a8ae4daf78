package client

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/protocol"

	"github.com/shopspring/decimal"
)

// ErrNotLoggedIn guards the operations that need an authenticated session.
var ErrNotLoggedIn = errors.New("not logged in")

// ErrProductUnknown reports an AddToCart for a product not in the last
// loaded catalog.
var ErrProductUnknown = errors.New("product not in catalog")

// CartItem is one line of the local, never-persisted cart. Name and price
// are snapshots from the catalog at the time the item was added.
type CartItem struct {
	ProductID int64
	Name      string
	Price     decimal.Decimal
	Quantity  int
}

// StockUpdate is a push notification surfaced to the consumer after the
// local product view has been reconciled.
type StockUpdate struct {
	ProductID int64
	NewStock  int
}

// ShopClient is the high-level client: authentication, catalog view, cart
// and checkout over one managed connection. Stock updates always overwrite
// the local view with the server-confirmed value.
//
// Methods are called from the consumer's goroutine; the receive loop only
// reconciles the product view and forwards notifications through Events.
type ShopClient struct {
	cm     *ConnManager
	events chan StockUpdate

	mu       sync.Mutex
	username string
	cart     []CartItem
	products map[int64]models.Product
}

// New creates a client for the given server address. decide is consulted
// after a disconnect; see DecisionFunc.
func New(opts Options) *ShopClient {
	c := &ShopClient{
		events:   make(chan StockUpdate, 64),
		products: make(map[int64]models.Product),
	}
	opts.OnEvent = c.handleEvent
	c.cm = NewConnManager(opts)

	// Every (re)connected session starts clean: login required again,
	// empty cart, no stale catalog.
	c.cm.States().Subscribe(func(s ConnState) {
		if s == StateConnected {
			c.reset()
		}
	})
	return c
}

// Connect establishes the initial connection.
func (c *ShopClient) Connect() error {
	return c.cm.Connect()
}

// Close shuts the client down.
func (c *ShopClient) Close() {
	c.cm.Close()
}

// Events delivers stock-change notifications for the consumer to render.
// The local product view is already reconciled when one arrives.
func (c *ShopClient) Events() <-chan StockUpdate {
	return c.events
}

// State returns the current connection state.
func (c *ShopClient) State() ConnState {
	return c.cm.States().State()
}

// States exposes the state machine for subscription.
func (c *ShopClient) States() *StateMachine {
	return c.cm.States()
}

func (c *ShopClient) reset() {
	c.mu.Lock()
	c.username = ""
	c.cart = nil
	c.products = make(map[int64]models.Product)
	c.mu.Unlock()
}

func (c *ShopClient) handleEvent(msg *protocol.ServerMessage) {
	if msg.NewStock == nil {
		return
	}
	stock := *msg.NewStock

	c.mu.Lock()
	if p, ok := c.products[msg.ProductID]; ok {
		p.Stock = stock
		c.products[msg.ProductID] = p
	}
	c.mu.Unlock()

	select {
	case c.events <- StockUpdate{ProductID: msg.ProductID, NewStock: stock}:
	default:
		// Consumer is not draining; the product view above is still correct.
	}
}

// Register creates a new account.
func (c *ShopClient) Register(username, password string) error {
	resp, err := c.cm.Do(&protocol.Request{
		Action:   protocol.ActionRegister,
		Username: username,
		Password: password,
	})
	if err != nil {
		return err
	}
	return asError(resp)
}

// Login authenticates and remembers the username for the session.
func (c *ShopClient) Login(username, password string) error {
	resp, err := c.cm.Do(&protocol.Request{
		Action:   protocol.ActionLogin,
		Username: username,
		Password: password,
	})
	if err != nil {
		return err
	}
	if err := asError(resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.username = username
	c.mu.Unlock()
	return nil
}

// Products fetches the catalog and refreshes the local view.
func (c *ShopClient) Products() ([]models.Product, error) {
	resp, err := c.cm.Do(&protocol.Request{Action: protocol.ActionGetProducts})
	if err != nil {
		return nil, err
	}
	if err := asError(resp); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.products = make(map[int64]models.Product, len(resp.Products))
	for _, p := range resp.Products {
		c.products[p.ID] = p
	}
	c.mu.Unlock()
	return resp.Products, nil
}

// AddToCart appends a line with a name/price snapshot from the catalog view.
func (c *ShopClient) AddToCart(productID int64, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[productID]
	if !ok {
		return ErrProductUnknown
	}
	c.cart = append(c.cart, CartItem{
		ProductID: productID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  quantity,
	})
	return nil
}

// RemoveFromCart drops every line for the given product.
func (c *ShopClient) RemoveFromCart(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.cart[:0]
	for _, item := range c.cart {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.cart = kept
}

// ClearCart empties the cart.
func (c *ShopClient) ClearCart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart = nil
}

// Cart returns a copy of the current cart.
func (c *ShopClient) Cart() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartItem, len(c.cart))
	copy(out, c.cart)
	return out
}

// CartTotal sums price times quantity over the cart.
func (c *ShopClient) CartTotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.cart {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Checkout submits the cart. On success the cart is cleared; on any failure
// it is kept so the user can adjust and resubmit.
func (c *ShopClient) Checkout() error {
	c.mu.Lock()
	username := c.username
	lines := make([]models.CartLine, len(c.cart))
	for i, item := range c.cart {
		lines[i] = models.CartLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	c.mu.Unlock()

	if username == "" {
		return ErrNotLoggedIn
	}
	if len(lines) == 0 {
		return fmt.Errorf("cart is empty")
	}

	resp, err := c.cm.Do(&protocol.Request{
		Action:   protocol.ActionCheckout,
		Username: username,
		Cart:     lines,
	})
	if err != nil {
		return err
	}
	if err := asError(resp); err != nil {
		return err
	}

	c.ClearCart()
	return nil
}

// History fetches the logged-in user's past orders.
func (c *ShopClient) History() ([]models.OrderHistoryEntry, error) {
	c.mu.Lock()
	username := c.username
	c.mu.Unlock()

	if username == "" {
		return nil, ErrNotLoggedIn
	}

	resp, err := c.cm.Do(&protocol.Request{
		Action:   protocol.ActionGetHistory,
		Username: username,
	})
	if err != nil {
		return nil, err
	}
	if err := asError(resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// asError converts an error reply into a Go error.
func asError(resp *protocol.ServerMessage) error {
	if resp.Status == protocol.StatusSuccess {
		return nil
	}
	if resp.Message != "" {
		return errors.New(resp.Message)
	}
	return errors.New("request failed")
}
