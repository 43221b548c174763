// Package relationships provides read access to relationship pairings.
package relationships

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/keepsake-app/keepsake/internal/common"
	"github.com/keepsake-app/keepsake/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Members(ctx context.Context, relationshipID string) (string, string, error) {
	var a, b string
	err := r.db.QueryRowContext(ctx,
		`SELECT user_a, user_b FROM relationships WHERE id = $1`, relationshipID).Scan(&a, &b)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", common.ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("db error: %w", err)
	}
	return a, b, nil
}
