package service

import (
	"context"
	"fmt"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"
	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/util"

	"go.uber.org/zap"
)

// ShopService handles accounts, catalog reads and order history
type ShopService struct {
	store  Inventory
	cache  CatalogCache
	logger *zap.Logger
}

// NewShopService creates a new shop service. cache may be nil.
func NewShopService(store Inventory, cache CatalogCache) *ShopService {
	return &ShopService{
		store:  store,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// Register creates a new account
func (s *ShopService) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password required", models.ErrInvalidCredentials)
	}
	if err := s.store.CreateUser(ctx, username, password); err != nil {
		return err
	}
	s.logger.Info("User registered", zap.String("username", username))
	return nil
}

// Login checks credentials
func (s *ShopService) Login(ctx context.Context, username, password string) (*models.User, error) {
	return s.store.Authenticate(ctx, username, password)
}

// Products returns the catalog, served from the cache when possible
func (s *ShopService) Products(ctx context.Context) ([]models.Product, error) {
	if s.cache != nil {
		products, hit, err := s.cache.GetProducts(ctx)
		if err != nil {
			s.logger.Warn("Catalog cache read failed, falling back to store", zap.Error(err))
		} else if hit {
			return products, nil
		}
	}

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetProducts(ctx, products); err != nil {
			s.logger.Warn("Catalog cache fill failed", zap.Error(err))
		}
	}
	return products, nil
}

// History returns the user's past orders with product names joined
func (s *ShopService) History(ctx context.Context, username string) ([]models.OrderHistoryEntry, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.store.OrdersByUser(ctx, user.ID)
}
