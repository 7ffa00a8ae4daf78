package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) (*CheckoutCoordinator, *memInventory, *chanBroadcaster) {
	t.Helper()
	inv := newMemInventory()
	require.NoError(t, inv.CreateUser(context.Background(), "alice", "secret"))
	inv.addProduct(1, "Apple (1 kg)", "250", 100)
	inv.addProduct(7, "Pineapple (1 pc)", "70", 5)

	bc := newChanBroadcaster()
	return NewCheckoutCoordinator(inv, bc, nil, nil), inv, bc
}

func TestCheckoutUnknownUser(t *testing.T) {
	coord, inv, _ := newTestCoordinator(t)

	err := coord.Checkout(context.Background(), "mallory", []models.CartLine{{ProductID: 1, Quantity: 1}})
	assert.ErrorIs(t, err, models.ErrUnknownUser)
	assert.Equal(t, 0, inv.orderCount())
	assert.Equal(t, 100, inv.stockOf(1))
}

func TestCheckoutInvalidCart(t *testing.T) {
	coord, inv, _ := newTestCoordinator(t)

	err := coord.Checkout(context.Background(), "alice", nil)
	assert.ErrorIs(t, err, ErrInvalidCart)

	err = coord.Checkout(context.Background(), "alice", []models.CartLine{{ProductID: 1, Quantity: 0}})
	assert.ErrorIs(t, err, ErrInvalidCart)

	assert.Equal(t, 0, inv.orderCount())
}

func TestCheckoutAllOrNothing(t *testing.T) {
	coord, inv, _ := newTestCoordinator(t)

	// Product 7 has 5 in stock; asking for 6 must fail the whole cart,
	// including the perfectly satisfiable apple line.
	err := coord.Checkout(context.Background(), "alice", []models.CartLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 7, Quantity: 6},
	})

	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(7), stockErr.ProductID)
	assert.Equal(t, 0, inv.orderCount())
	assert.Equal(t, 100, inv.stockOf(1))
	assert.Equal(t, 5, inv.stockOf(7))
}

func TestCheckoutNonexistentProduct(t *testing.T) {
	coord, inv, _ := newTestCoordinator(t)

	err := coord.Checkout(context.Background(), "alice", []models.CartLine{{ProductID: 42, Quantity: 1}})

	var stockErr *models.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(42), stockErr.ProductID)
	assert.Equal(t, 0, inv.orderCount())
}

func TestCheckoutBroadcastsPostDecrementStock(t *testing.T) {
	coord, _, bc := newTestCoordinator(t)

	err := coord.Checkout(context.Background(), "alice", []models.CartLine{
		{ProductID: 1, Quantity: 10},
		{ProductID: 7, Quantity: 2},
	})
	require.NoError(t, err)

	got := map[int64]int{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-bc.ch:
			require.True(t, msg.IsEvent())
			require.NotNil(t, msg.NewStock)
			got[msg.ProductID] = *msg.NewStock
		case <-time.After(2 * time.Second):
			t.Fatal("missing stock_update broadcast")
		}
	}

	assert.Equal(t, map[int64]int{1: 90, 7: 3}, got)
}

func TestCheckoutDuplicateLinesBroadcastOnce(t *testing.T) {
	coord, inv, bc := newTestCoordinator(t)

	err := coord.Checkout(context.Background(), "alice", []models.CartLine{
		{ProductID: 7, Quantity: 2},
		{ProductID: 7, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inv.stockOf(7))

	select {
	case msg := <-bc.ch:
		assert.Equal(t, int64(7), msg.ProductID)
		require.NotNil(t, msg.NewStock)
		assert.Equal(t, 2, *msg.NewStock)
	case <-time.After(2 * time.Second):
		t.Fatal("missing stock_update broadcast")
	}

	select {
	case msg := <-bc.ch:
		t.Fatalf("unexpected extra broadcast: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCheckoutInvalidatesCatalogCache(t *testing.T) {
	inv := newMemInventory()
	require.NoError(t, inv.CreateUser(context.Background(), "alice", "secret"))
	inv.addProduct(1, "Apple (1 kg)", "250", 100)

	cache := &memCache{}
	require.NoError(t, cache.SetProducts(context.Background(), []models.Product{{ID: 1}}))

	bc := newChanBroadcaster()
	coord := NewCheckoutCoordinator(inv, bc, cache, nil)

	require.NoError(t, coord.Checkout(context.Background(), "alice", []models.CartLine{{ProductID: 1, Quantity: 1}}))

	// Cache invalidation rides the same background fan-out as the broadcast.
	select {
	case <-bc.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("missing broadcast")
	}
	_, hit, err := cache.GetProducts(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	// Stock for product 7 is 5; two carts racing for 3 units each must not
	// both succeed, and the loser sees InsufficientStock for product 7.
	coord, inv, _ := newTestCoordinator(t)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- coord.Checkout(context.Background(), "alice", []models.CartLine{{ProductID: 7, Quantity: 3}})
		}()
	}
	wg.Wait()
	close(results)

	var successes, stockFailures int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		var stockErr *models.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		assert.Equal(t, int64(7), stockErr.ProductID)
		stockFailures++
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, stockFailures)
	assert.Equal(t, 2, inv.stockOf(7))
	assert.Equal(t, 1, inv.orderCount())
}

func TestConcurrentCheckoutsDisjointProductsAllSucceed(t *testing.T) {
	coord, inv, _ := newTestCoordinator(t)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, pid := range []int64{1, 7} {
		pid := pid
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- coord.Checkout(context.Background(), "alice", []models.CartLine{{ProductID: pid, Quantity: 1}})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 99, inv.stockOf(1))
	assert.Equal(t, 4, inv.stockOf(7))
}

func TestCheckoutPublishesDomainEvents(t *testing.T) {
	inv := newMemInventory()
	require.NoError(t, inv.CreateUser(context.Background(), "alice", "secret"))
	inv.addProduct(1, "Apple (1 kg)", "250", 100)

	pub := &memPublisher{}
	coord := NewCheckoutCoordinator(inv, newChanBroadcaster(), nil, pub)

	require.NoError(t, coord.Checkout(context.Background(), "alice", []models.CartLine{{ProductID: 1, Quantity: 2}}))

	require.Eventually(t, func() bool {
		return pub.orderPlaced() == 1 && pub.stockChanged() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// memPublisher counts published events.
type memPublisher struct {
	mu     sync.Mutex
	placed int
	stock  int
}

func (p *memPublisher) PublishOrderPlaced(context.Context, int64, []models.CartLine) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed++
	return nil
}

func (p *memPublisher) PublishStockChanged(context.Context, int64, int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stock++
	return nil
}

func (p *memPublisher) orderPlaced() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.placed
}

func (p *memPublisher) stockChanged() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stock
}

var (
	_ Broadcaster = (*chanBroadcaster)(nil)
	_ Inventory   = (*memInventory)(nil)
	_ Publisher   = (*memPublisher)(nil)
)
