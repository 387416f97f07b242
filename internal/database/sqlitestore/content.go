package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tangled.org/tanager.social/tanager/internal/trust"
)

// ContentStore implements trust.ContentStore against the platform's
// content tables in the shared database. The engine only resolves owners
// and issues deletes; content creation belongs to the platform.
type ContentStore struct {
	db *sql.DB
}

// Ensure ContentStore implements the interface at compile time.
var _ trust.ContentStore = (*ContentStore)(nil)

// ContentStore returns the content collaborator view of this database.
func (s *Store) ContentStore() *ContentStore {
	return &ContentStore{db: s.db}
}

// CreateContent inserts a content row; used by platform tooling and tests.
func (c *ContentStore) CreateContent(ctx context.Context, contentType trust.TargetType, id, ownerID string, createdAt time.Time) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO content_items (id, content_type, owner_id, created_at)
		VALUES (?, ?, ?, ?)
	`, id, string(contentType), ownerID, fmtTime(createdAt))
	if err != nil {
		return fmt.Errorf("create content: %w", err)
	}
	return nil
}

// OwnerOf resolves the owning user of a piece of content.
func (c *ContentStore) OwnerOf(ctx context.Context, contentType trust.TargetType, contentID string) (string, error) {
	var owner string
	err := c.db.QueryRowContext(ctx, `
		SELECT owner_id FROM content_items WHERE content_type = ? AND id = ?
	`, string(contentType), contentID).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", &trust.NotFoundError{Kind: string(contentType), ID: contentID}
	}
	if err != nil {
		return "", fmt.Errorf("query content owner: %w", err)
	}
	return owner, nil
}

// Delete removes a piece of content. Unconditional once authorized; there
// is no soft-delete.
func (c *ContentStore) Delete(ctx context.Context, contentType trust.TargetType, contentID string) error {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM content_items WHERE content_type = ? AND id = ?
	`, string(contentType), contentID)
	if err != nil {
		return fmt.Errorf("delete content: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return &trust.NotFoundError{Kind: string(contentType), ID: contentID}
	}
	return nil
}
