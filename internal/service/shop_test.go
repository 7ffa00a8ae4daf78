package service

import (
	"context"
	"testing"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	inv := newMemInventory()
	shop := NewShopService(inv, nil)
	ctx := context.Background()

	require.NoError(t, shop.Register(ctx, "alice", "secret"))

	err := shop.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, models.ErrUsernameTaken)

	user, err := shop.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = shop.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = shop.Login(ctx, "bob", "secret")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestRegisterRejectsEmptyCredentials(t *testing.T) {
	shop := NewShopService(newMemInventory(), nil)

	assert.Error(t, shop.Register(context.Background(), "", "secret"))
	assert.Error(t, shop.Register(context.Background(), "alice", ""))
}

func TestProductsFillsAndServesCache(t *testing.T) {
	inv := newMemInventory()
	inv.addProduct(1, "Apple (1 kg)", "250", 100)

	cache := &memCache{}
	shop := NewShopService(inv, cache)
	ctx := context.Background()

	first, err := shop.Products(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// The store changes underneath, but the cache still answers until it is
	// invalidated by a checkout.
	inv.addProduct(2, "Banana (1 kg)", "30", 150)

	second, err := shop.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	require.NoError(t, cache.InvalidateProducts(ctx))

	third, err := shop.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

func TestHistoryReturnsJoinedRowsInStableOrder(t *testing.T) {
	inv := newMemInventory()
	ctx := context.Background()
	require.NoError(t, inv.CreateUser(ctx, "alice", "secret"))
	require.NoError(t, inv.CreateUser(ctx, "bob", "secret"))
	inv.addProduct(1, "Apple (1 kg)", "250", 100)
	inv.addProduct(2, "Banana (1 kg)", "30", 150)

	alice, err := inv.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	bob, err := inv.GetUserByUsername(ctx, "bob")
	require.NoError(t, err)

	_, err = inv.CommitCheckout(ctx, alice.ID, []models.CartLine{{ProductID: 1, Quantity: 2}})
	require.NoError(t, err)
	_, err = inv.CommitCheckout(ctx, bob.ID, []models.CartLine{{ProductID: 2, Quantity: 5}})
	require.NoError(t, err)
	_, err = inv.CommitCheckout(ctx, alice.ID, []models.CartLine{{ProductID: 2, Quantity: 1}})
	require.NoError(t, err)

	shop := NewShopService(inv, nil)

	orders, err := shop.History(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, "Apple (1 kg)", orders[0].ProductName)
	assert.Equal(t, 2, orders[0].Quantity)
	assert.Equal(t, "Banana (1 kg)", orders[1].ProductName)
	assert.Equal(t, 1, orders[1].Quantity)
	assert.False(t, orders[0].OrderTime.IsZero())
	assert.Less(t, orders[0].ID, orders[1].ID)
}

func TestHistoryUnknownUser(t *testing.T) {
	shop := NewShopService(newMemInventory(), nil)

	_, err := shop.History(context.Background(), "nobody")
	assert.ErrorIs(t, err, models.ErrUnknownUser)
}
