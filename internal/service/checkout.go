package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/protocol"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"

	"go.uber.org/zap"
)

// ErrInvalidCart reports an empty cart or a line with quantity below one.
var ErrInvalidCart = errors.New("invalid cart")

// fanOutTimeout bounds the background work following a committed checkout.
const fanOutTimeout = 5 * time.Second

// CheckoutCoordinator converts carts into committed orders and stock
// decrements, then fans the resulting stock changes out to every session.
// All-or-nothing across the cart: either every line commits or none does.
type CheckoutCoordinator struct {
	store       Inventory
	broadcaster Broadcaster
	cache       CatalogCache
	publisher   Publisher
	logger      *zap.Logger
}

// NewCheckoutCoordinator creates a new coordinator. cache and publisher may
// be nil.
func NewCheckoutCoordinator(store Inventory, broadcaster Broadcaster, cache CatalogCache, publisher Publisher) *CheckoutCoordinator {
	return &CheckoutCoordinator{
		store:       store,
		broadcaster: broadcaster,
		cache:       cache,
		publisher:   publisher,
		logger:      util.GetLogger(),
	}
}

// Checkout validates the cart against current stock and commits it as one
// atomic unit. Racing checkouts on the same product serialize through the
// store's conditional decrement. The fan-out of stock updates runs in the
// background; the caller's success return is never blocked on it.
func (c *CheckoutCoordinator) Checkout(ctx context.Context, username string, lines []models.CartLine) error {
	ctx, span := util.StartSpan(ctx, "CheckoutCoordinator.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	if len(lines) == 0 {
		util.CheckoutsTotal.WithLabelValues("invalid_cart").Inc()
		return fmt.Errorf("%w: cart is empty", ErrInvalidCart)
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			util.CheckoutsTotal.WithLabelValues("invalid_cart").Inc()
			return fmt.Errorf("%w: quantity must be at least 1 for product %d", ErrInvalidCart, line.ProductID)
		}
	}

	user, err := c.store.GetUserByUsername(ctx, username)
	if err != nil {
		util.CheckoutsTotal.WithLabelValues("unknown_user").Inc()
		return err
	}

	levels, err := c.store.CommitCheckout(ctx, user.ID, lines)
	if err != nil {
		var stockErr *models.InsufficientStockError
		if errors.As(err, &stockErr) {
			util.CheckoutsTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.CheckoutsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	util.CheckoutsTotal.WithLabelValues("success").Inc()
	c.logger.Info("Checkout committed",
		zap.Int64("user_id", user.ID),
		zap.Int("lines", len(lines)))

	go c.fanOut(user.ID, lines, levels)
	return nil
}

// fanOut delivers the consequences of a committed checkout: cache
// invalidation, stock_update broadcast to every live session (the originator
// included), and best-effort domain events. Failures here are logged only.
func (c *CheckoutCoordinator) fanOut(userID int64, lines []models.CartLine, levels []models.StockLevel) {
	ctx, cancel := context.WithTimeout(context.Background(), fanOutTimeout)
	defer cancel()

	if c.cache != nil {
		if err := c.cache.InvalidateProducts(ctx); err != nil {
			c.logger.Warn("Catalog cache invalidation failed", zap.Error(err))
		}
	}

	for _, level := range levels {
		c.broadcaster.Broadcast(protocol.StockUpdate(level.ProductID, level.Stock))
		util.BroadcastEventsTotal.Inc()
	}

	if c.publisher != nil {
		if err := c.publisher.PublishOrderPlaced(ctx, userID, lines); err != nil {
			c.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
		}
		for _, level := range levels {
			if err := c.publisher.PublishStockChanged(ctx, level.ProductID, level.Stock); err != nil {
				c.logger.Error("Failed to publish StockChanged event", zap.Error(err))
			}
		}
	}
}
