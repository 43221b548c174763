// Package gifts provides the PostgreSQL-backed repository for the
// authoritative gift record store.
package gifts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/keepsake-app/keepsake/internal/common"
	"github.com/keepsake-app/keepsake/internal/dbx"
	"github.com/keepsake-app/keepsake/internal/gifts"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const giftColumns = `id, sender_id, receiver_id, relationship_id, gift_type,
	photo_url, memory_id, message, status, created_at, expires_at,
	delivered_at, seen_at, dismissed_at`

func (r *PostgresRepository) Create(ctx context.Context, g *gifts.Gift) error {
	query := `
		INSERT INTO gifts (id, sender_id, receiver_id, relationship_id, gift_type,
			photo_url, memory_id, message, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		g.ID, g.SenderID, g.ReceiverID, g.RelationshipID, g.Type,
		nullString(g.PhotoURL), nullString(g.MemoryID), nullString(g.Message),
		g.Status, g.CreatedAt, g.ExpiresAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*gifts.Gift, error) {
	query := `SELECT ` + giftColumns + ` FROM gifts WHERE id = $1`
	g, err := scanGift(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}

// MarkDelivered is a compare-and-swap: the row moves to delivered only if it
// is still pending. Zero rows affected on an existing gift means another run
// already delivered it (or the receiver already interacted), which is success.
func (r *PostgresRepository) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE gifts SET status = 'delivered', delivered_at = $2
		WHERE id = $1 AND status = 'pending'`
	return r.conditionalUpdate(ctx, query, id, at)
}

func (r *PostgresRepository) MarkSeen(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE gifts SET status = 'seen', seen_at = $2
		WHERE id = $1 AND status IN ('pending', 'delivered')`
	return r.conditionalUpdate(ctx, query, id, at)
}

func (r *PostgresRepository) Dismiss(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE gifts SET status = 'dismissed', dismissed_at = $2
		WHERE id = $1 AND status IN ('pending', 'delivered')`
	return r.conditionalUpdate(ctx, query, id, at)
}

func (r *PostgresRepository) conditionalUpdate(ctx context.Context, query, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 1 {
		return nil
	}

	// Zero rows: distinguish a missing gift from one whose status guard no
	// longer matches. The latter is an idempotent no-op, never an error.
	var status string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM gifts WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SelectActive(ctx context.Context, receiverID string, now time.Time) ([]*gifts.Gift, error) {
	query := `SELECT ` + giftColumns + ` FROM gifts
		WHERE receiver_id = $1
		  AND status IN ('pending', 'delivered')
		  AND expires_at > $2
		ORDER BY created_at ASC`
	return r.selectGifts(ctx, query, receiverID, now)
}

func (r *PostgresRepository) SelectSent(ctx context.Context, senderID string, limit int) ([]*gifts.Gift, error) {
	query := `SELECT ` + giftColumns + ` FROM gifts
		WHERE sender_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.selectGifts(ctx, query, senderID, limit)
}

func (r *PostgresRepository) SelectReceived(ctx context.Context, receiverID string, limit int) ([]*gifts.Gift, error) {
	query := `SELECT ` + giftColumns + ` FROM gifts
		WHERE receiver_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.selectGifts(ctx, query, receiverID, limit)
}

// ExpireStale only matches non-terminal rows, so concurrent sweeps race
// harmlessly: whichever runs first flips the rows, the rest affect nothing.
func (r *PostgresRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE gifts SET status = 'expired'
		WHERE status IN ('pending', 'delivered') AND expires_at < $1`
	res, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) selectGifts(ctx context.Context, query string, args ...any) ([]*gifts.Gift, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select gifts: %w", err)
	}
	defer rows.Close()

	var result []*gifts.Gift
	for rows.Next() {
		g, err := scanGift(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGift(row rowScanner) (*gifts.Gift, error) {
	var g gifts.Gift
	var photoURL, memoryID, message sql.NullString
	var deliveredAt, seenAt, dismissedAt sql.NullTime

	err := row.Scan(
		&g.ID, &g.SenderID, &g.ReceiverID, &g.RelationshipID, &g.Type,
		&photoURL, &memoryID, &message, &g.Status, &g.CreatedAt, &g.ExpiresAt,
		&deliveredAt, &seenAt, &dismissedAt,
	)
	if err != nil {
		return nil, err
	}

	g.PhotoURL = photoURL.String
	g.MemoryID = memoryID.String
	g.Message = message.String
	g.DeliveredAt = nullableTime(deliveredAt)
	g.SeenAt = nullableTime(seenAt)
	g.DismissedAt = nullableTime(dismissedAt)
	return &g, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
