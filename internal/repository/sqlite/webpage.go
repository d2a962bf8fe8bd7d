package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"

	"github.com/tdhoang/authcore/internal/apperror"
	"github.com/tdhoang/authcore/internal/model"
	"github.com/tdhoang/authcore/internal/repository"
)

var _ repository.WebpageRepository = (*WebpageDB)(nil)

// WebpageDB implements repository.WebpageRepository. The auth core only
// reads it; Create exists for seeding and admin tooling.
type WebpageDB struct {
	conn *sql.DB
}

// GetByKey resolves a webpage key to its record.
func (w *WebpageDB) GetByKey(ctx context.Context, key string) (*model.Webpage, error) {
	var page model.Webpage

	err := w.conn.QueryRowContext(ctx,
		`SELECT id, name, key, url, description FROM webpages WHERE key = ?`,
		key,
	).Scan(&page.ID, &page.Name, &page.Key, &page.URL, &page.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("webpage", key)
		}
		return nil, fmt.Errorf("sqlite: getting webpage %s: %w", key, err)
	}

	return &page, nil
}

// Create inserts a redirect target. The key is unique; a second insert with
// the same key fails.
func (w *WebpageDB) Create(ctx context.Context, page *model.Webpage) error {
	page.ID = xid.New().String()

	_, err := w.conn.ExecContext(ctx,
		`INSERT INTO webpages (id, name, key, url, description) VALUES (?, ?, ?, ?, ?)`,
		page.ID, page.Name, page.Key, page.URL, page.Description,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting webpage %q: %w", page.Key, err)
	}

	return nil
}
