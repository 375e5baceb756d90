package store

import (
	"context"
	"fmt"

	"github.com/nhle/forum-inbound/internal/model"
)

// UserByEmail returns the active user registered with the given
// address, or nil when no such user exists.
func (s *SQLiteStore) UserByEmail(ctx context.Context, address string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT * FROM users WHERE lower(email) = lower(?) AND active = 1", address)
	if err != nil {
		if err = absorbNoRows(err); err != nil {
			return nil, fmt.Errorf("querying user by email: %w", err)
		}
		return nil, nil
	}
	return &u, nil
}

// UserByUsername returns the user with the given handle, or nil.
func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u,
		"SELECT * FROM users WHERE lower(username) = lower(?)", username)
	if err != nil {
		if err = absorbNoRows(err); err != nil {
			return nil, fmt.Errorf("querying user by username: %w", err)
		}
		return nil, nil
	}
	return &u, nil
}

// UserByID returns the user with the given id, or nil.
func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	err := s.db.GetContext(ctx, &u, "SELECT * FROM users WHERE id = ?", id)
	if err != nil {
		if err = absorbNoRows(err); err != nil {
			return nil, fmt.Errorf("querying user by id: %w", err)
		}
		return nil, nil
	}
	return &u, nil
}

// InsertUser creates a user and returns its assigned id.
func (s *SQLiteStore) InsertUser(ctx context.Context, u *model.User) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, email, trust_level, active) VALUES (?, ?, ?, ?)",
		u.Username, u.Email, u.TrustLevel, u.Active)
	if err != nil {
		return 0, fmt.Errorf("inserting user %s: %w", u.Username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading user id: %w", err)
	}
	u.ID = id
	return id, nil
}
