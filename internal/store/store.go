package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the users, products and orders tables if missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(255) UNIQUE,
			password VARCHAR(255)
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255),
			price NUMERIC(10,2),
			stock INT
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			user_id INT REFERENCES users(id),
			product_id INT REFERENCES products(id),
			quantity INT,
			order_time TIMESTAMPTZ DEFAULT NOW()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SeedDemoData inserts the sample catalog and the admin account when the
// corresponding tables are empty
func (s *Store) SeedDemoData(ctx context.Context) error {
	var productCount int
	if err := s.db.GetContext(ctx, &productCount, "SELECT COUNT(*) FROM products"); err != nil {
		return err
	}
	if productCount == 0 {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO products (name, price, stock) VALUES
				('Apple (1 kg)', 250, 100),
				('Banana (1 kg)', 30, 150),
				('Strawberry (200 gms)', 110, 150),
				('Peach (500 gms)', 96, 150),
				('Mango (1 kg)', 105, 150),
				('Orange (1 kg)', 190, 150),
				('Pineapple (1 pc)', 70, 150),
				('Watermelon (1 pc)', 35, 150),
				('Papaya (1 pc)', 70, 150)`)
		if err != nil {
			return fmt.Errorf("failed to seed products: %w", err)
		}
	}

	var userCount int
	if err := s.db.GetContext(ctx, &userCount, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}
	if userCount == 0 {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO users (username, password) VALUES ('admin', '123456')")
		if err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}
	}
	return nil
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("product not found: %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts retrieves the full catalog
func (s *Store) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// CommitCheckout validates and commits a whole cart as one transaction.
// Every line is decremented conditionally (stock >= quantity), so two
// checkouts racing for the last units of the same product serialize in the
// database; if any line fails, nothing in the cart takes effect. Returns the
// post-decrement stock of every distinct product touched.
func (s *Store) CommitCheckout(ctx context.Context, userID int64, lines []models.CartLine) ([]models.StockLevel, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Validation pass: re-read current stock for every line.
	for _, line := range lines {
		var stock int
		err := tx.GetContext(ctx, &stock, "SELECT stock FROM products WHERE id = $1", line.ProductID)
		if err == sql.ErrNoRows {
			return nil, &models.InsufficientStockError{ProductID: line.ProductID}
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read stock: %w", err)
		}
		if stock < line.Quantity {
			return nil, &models.InsufficientStockError{ProductID: line.ProductID}
		}
	}

	// Conditional decrement guards against checkouts racing between the
	// validation pass and here.
	for _, line := range lines {
		res, err := tx.ExecContext(ctx,
			"UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1",
			line.Quantity, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, &models.InsufficientStockError{ProductID: line.ProductID}
		}
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO orders (user_id, product_id, quantity) VALUES ($1, $2, $3)",
			userID, line.ProductID, line.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
	}

	levels := make([]models.StockLevel, 0, len(lines))
	seen := make(map[int64]bool, len(lines))
	for _, line := range lines {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true

		var stock int
		if err := tx.GetContext(ctx, &stock, "SELECT stock FROM products WHERE id = $1", line.ProductID); err != nil {
			return nil, fmt.Errorf("failed to read post-checkout stock: %w", err)
		}
		levels = append(levels, models.StockLevel{ProductID: line.ProductID, Stock: stock})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit checkout: %w", err)
	}
	return levels, nil
}
