package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresHistoryRepository provides PostgreSQL-backed persistence for
// per-user watch history.
type PostgresHistoryRepository struct {
	pool db.Pool
}

// NewPostgresHistoryRepository constructs a history repository backed by PostgreSQL.
func NewPostgresHistoryRepository(pool db.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

// Record appends a video to the user's watch history. The pair key makes the
// append idempotent: replays keep the original add time.
func (r *PostgresHistoryRepository) Record(ctx context.Context, userID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO watch_history (user_id, video_id, added_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id, video_id) DO NOTHING
    `, userID, videoID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("insert history entry: %w", err)
	}

	return nil
}

// List returns the user's watch history expanded with video and owner
// metadata, most recently added first.
func (r *PostgresHistoryRepository) List(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoSummaryColumns+`, h.added_at
        FROM watch_history h
        JOIN videos v ON v.id = h.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE h.user_id = $1
        ORDER BY h.added_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query watch history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		err := rows.Scan(
			&e.ID, &e.OwnerID, &e.Title, &e.Category, &e.VideoURL, &e.ThumbnailURL,
			&e.Duration, &e.Views, &e.IsPublished, &e.CreatedAt, &e.UpdatedAt,
			&e.OwnerUsername, &e.OwnerFullName, &e.OwnerAvatar,
			&e.AddedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate watch history: %w", err)
	}

	return entries, nil
}

var _ HistoryRepository = (*PostgresHistoryRepository)(nil)
