package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Delicias2025/delicias-de-mi-patria/internal/content"
	"github.com/Delicias2025/delicias-de-mi-patria/internal/schema"
)

// GetContent returns one content block.
func (s *Store) GetContent(ctx context.Context, key string) (*schema.ContentBlock, error) {
	return getContent(ctx, s.db, key)
}

func getContent(ctx context.Context, q queryer, key string) (*schema.ContentBlock, error) {
	var b schema.ContentBlock
	var updated string
	err := q.QueryRowContext(ctx, "SELECT key, title, body, updated_at FROM content_blocks WHERE key = ?", key).
		Scan(&b.Key, &b.Title, &b.Body, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("content %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("content %s: %w", key, err)
	}
	b.UpdatedAt = parseTime(updated)
	return &b, nil
}

// ListContent returns every content block ordered by key.
func (s *Store) ListContent(ctx context.Context) ([]schema.ContentBlock, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, title, body, updated_at FROM content_blocks ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("listing content: %w", err)
	}
	defer rows.Close()
	out := []schema.ContentBlock{}
	for rows.Next() {
		var b schema.ContentBlock
		var updated string
		if err := rows.Scan(&b.Key, &b.Title, &b.Body, &updated); err != nil {
			return nil, fmt.Errorf("scanning content: %w", err)
		}
		b.UpdatedAt = parseTime(updated)
		out = append(out, b)
	}
	return out, rows.Err()
}

// PutContent creates or replaces a content block. When the body changes a
// revision holding the patch from the previous body is recorded and returned;
// otherwise the revision is nil.
func (s *Store) PutContent(ctx context.Context, b schema.ContentBlock) (*schema.ContentRevision, error) {
	var rev *schema.ContentRevision
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		before := ""
		prev, err := getContent(ctx, tx, b.Key)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			return err
		default:
			before = prev.Body
		}

		now := s.now()
		if _, err := tx.ExecContext(ctx, `INSERT INTO content_blocks (key, title, body, updated_at) VALUES (?,?,?,?)
			ON CONFLICT(key) DO UPDATE SET title = excluded.title, body = excluded.body, updated_at = excluded.updated_at`,
			b.Key, b.Title, b.Body, formatTime(now)); err != nil {
			return fmt.Errorf("content %s: %w", b.Key, err)
		}

		patch := content.Revise(before, b.Body)
		if patch == "" {
			return nil
		}
		res, err := tx.ExecContext(ctx, "INSERT INTO content_revisions (key, patch, created_at) VALUES (?,?,?)",
			b.Key, patch, formatTime(now))
		if err != nil {
			return fmt.Errorf("content %s revision: %w", b.Key, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		rev = &schema.ContentRevision{ID: id, Key: b.Key, Patch: patch, CreatedAt: now}
		return nil
	})
	return rev, err
}

// ListRevisions returns the revisions of key, oldest first.
func (s *Store) ListRevisions(ctx context.Context, key string) ([]schema.ContentRevision, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, key, patch, created_at FROM content_revisions WHERE key = ? ORDER BY id", key)
	if err != nil {
		return nil, fmt.Errorf("listing revisions: %w", err)
	}
	defer rows.Close()
	out := []schema.ContentRevision{}
	for rows.Next() {
		var r schema.ContentRevision
		var created string
		if err := rows.Scan(&r.ID, &r.Key, &r.Patch, &created); err != nil {
			return nil, fmt.Errorf("scanning revision: %w", err)
		}
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}
