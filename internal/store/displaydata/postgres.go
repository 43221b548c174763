// Package displaydata provides read-only access to collaborator-owned
// display data used when joining gift queues client-side.
package displaydata

import (
	"context"
	"fmt"

	"github.com/keepsake-app/keepsake/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) SenderNames(ctx context.Context, ids []string) (map[string]string, error) {
	result := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, display_name FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to select users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		result[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Memories(ctx context.Context, ids []string) (map[string]Memory, error) {
	result := make(map[string]Memory, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, photo_url FROM memories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to select memories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var m Memory
		if err := rows.Scan(&id, &m.Title, &m.PhotoURL); err != nil {
			return nil, err
		}
		result[id] = m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
