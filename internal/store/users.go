package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tanyatrips135/Socket-Programming-Shopping-App/internal/models"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for a unique constraint breach
const uniqueViolation = "23505"

// CreateUser inserts a new account. A taken username yields ErrUsernameTaken.
func (s *Store) CreateUser(ctx context.Context, username, password string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, password) VALUES ($1, $2)", username, password)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByUsername retrieves an account by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE username = $1", username)
	if err == sql.ErrNoRows {
		return nil, models.ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate checks a username/password pair
func (s *Store) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user,
		"SELECT * FROM users WHERE username = $1 AND password = $2", username, password)
	if err == sql.ErrNoRows {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
