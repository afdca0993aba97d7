// Package postgres persists crawled page state.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kkucdk/assistant-backend/internal/core/domain"
)

type PageRepository struct {
	db *sql.DB
}

func NewPageRepository(db *sql.DB) *PageRepository {
	return &PageRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *PageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082901)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	title TEXT,
	content_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pages_status ON pages(status);
CREATE INDEX IF NOT EXISTS idx_pages_created_at ON pages(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *PageRepository) Create(ctx context.Context, page *domain.Page) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO pages (
	id, url, title, content_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		page.ID, page.URL, page.Title, page.ContentType, page.StoragePath,
		string(page.Status), page.Error, page.CreatedAt, page.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

const selectPageColumns = `
SELECT id, url, title, content_type, storage_path, status, error_message, created_at, updated_at
FROM pages
`

func (r *PageRepository) GetByID(ctx context.Context, id string) (*domain.Page, error) {
	row := r.db.QueryRowContext(ctx, selectPageColumns+`WHERE id = $1`, id)
	return scanPage(row, id)
}

func (r *PageRepository) GetByURL(ctx context.Context, url string) (*domain.Page, error) {
	row := r.db.QueryRowContext(ctx, selectPageColumns+`WHERE url = $1`, url)
	return scanPage(row, url)
}

func scanPage(row *sql.Row, key string) (*domain.Page, error) {
	var page domain.Page
	var status string

	err := row.Scan(
		&page.ID, &page.URL, &page.Title, &page.ContentType, &page.StoragePath,
		&status, &page.Error, &page.CreatedAt, &page.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPageNotFound, "load page", fmt.Errorf("%s", key))
		}
		return nil, fmt.Errorf("scan page: %w", err)
	}
	page.Status = domain.PageStatus(status)
	return &page, nil
}

func (r *PageRepository) UpdateStatus(ctx context.Context, id string, status domain.PageStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pages SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update page status: %w", err)
	}
	return requireRow(result, id)
}

func (r *PageRepository) UpdateTitle(ctx context.Context, id string, title string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pages SET title = $2, updated_at = $3 WHERE id = $1
`, id, title, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update page title: %w", err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrPageNotFound, "update page", fmt.Errorf("%s", id))
	}
	return nil
}
