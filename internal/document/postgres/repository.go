// Package postgres stores documents in PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	pgclient "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
    id         BIGSERIAL PRIMARY KEY,
    title      VARCHAR(100) NOT NULL,
    content    TEXT NOT NULL,
    owner_id   BIGINT NOT NULL,
    status     VARCHAR(16) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_documents_owner_id ON documents (owner_id)`

var migrations = []pgclient.Migration{
	{Name: "0001_documents", SQL: documentsSchema},
}

const selectColumns = `SELECT id, title, content, owner_id, status, created_at, updated_at FROM documents`

type Repository struct {
	db     *pgclient.Client
	logger *slog.Logger
}

func NewRepository(db *pgclient.Client) *Repository {
	return &Repository{
		db:     db,
		logger: slog.Default().With("component", "document-repository"),
	}
}

func (r *Repository) Migrate(ctx context.Context) error {
	return r.db.Migrate(ctx, migrations...)
}

func (r *Repository) Create(ctx context.Context, doc *document.Document) error {
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO documents (title, content, owner_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id`,
		doc.Title, doc.Content, doc.OwnerID, doc.Status, now,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return nil
}

func (r *Repository) Update(ctx context.Context, doc *document.Document) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET title = $1, content = $2, status = $3, updated_at = $4
		 WHERE id = $5 AND owner_id = $6`,
		doc.Title, doc.Content, doc.Status, now, doc.ID, doc.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("updating document %d: %w", doc.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("updating document %d: no such row", doc.ID)
	}
	doc.UpdatedAt = now
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status document.Status) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("updating status of document %d: %w", id, err)
	}
	return nil
}

func (r *Repository) FindByIDAndOwnerID(ctx context.Context, id, ownerID int64) (*document.Document, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = $1 AND owner_id = $2`, id, ownerID)
	doc, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %d: %w", id, err)
	}
	return doc, nil
}

func (r *Repository) FindAllByOwner(ctx context.Context, ownerID int64) ([]document.Document, error) {
	return r.query(ctx, selectColumns+` WHERE owner_id = $1 ORDER BY id`, ownerID)
}

// FindAll loads every stored document. It feeds the startup index rebuild.
func (r *Repository) FindAll(ctx context.Context) ([]document.Document, error) {
	return r.query(ctx, selectColumns+` ORDER BY id`)
}

func (r *Repository) Delete(ctx context.Context, id, ownerID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	return nil
}

// DeleteAllByOwner locks the owner's rows, deletes them and returns their
// ids, all in one transaction.
func (r *Repository) DeleteAllByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.InTx(ctx, func(tx pgclient.Querier) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM documents WHERE owner_id = $1 ORDER BY id FOR UPDATE`, ownerID)
		if err != nil {
			return fmt.Errorf("locking documents: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("scanning document id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
			return fmt.Errorf("deleting documents: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.logger.Debug("owner documents deleted", "owner_id", ownerID, "count", len(ids))
	return ids, nil
}

func (r *Repository) query(ctx context.Context, q string, args ...any) ([]document.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var docs []document.Document
	for rows.Next() {
		doc, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*document.Document, error) {
	var doc document.Document
	if err := s.Scan(&doc.ID, &doc.Title, &doc.Content, &doc.OwnerID, &doc.Status, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}
