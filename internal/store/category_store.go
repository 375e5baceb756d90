package store

import (
	"context"
	"fmt"

	"github.com/nhle/forum-inbound/internal/model"
)

// CategoryByInboundAddress returns the category whose inbound address
// equals the given recipient address, or nil when none matches.
// Matching is case-insensitive; categories without an inbound address
// never match.
func (s *SQLiteStore) CategoryByInboundAddress(ctx context.Context, address string) (*model.Category, error) {
	var c model.Category
	err := s.db.GetContext(ctx, &c,
		"SELECT * FROM categories WHERE email_in != '' AND lower(email_in) = lower(?)", address)
	if err != nil {
		if err = absorbNoRows(err); err != nil {
			return nil, fmt.Errorf("querying category by inbound address: %w", err)
		}
		return nil, nil
	}
	return &c, nil
}

// InsertCategory creates a category and returns its assigned id.
func (s *SQLiteStore) InsertCategory(ctx context.Context, c *model.Category) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (name, email_in, email_in_allow_strangers) VALUES (?, ?, ?)",
		c.Name, c.EmailIn, c.EmailInAllowStrangers)
	if err != nil {
		return 0, fmt.Errorf("inserting category %s: %w", c.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading category id: %w", err)
	}
	c.ID = id
	return id, nil
}
