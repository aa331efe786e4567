package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

const videoSummaryColumns = `v.id, v.owner_id, v.title, v.category, v.video_url,
        v.thumbnail_url, v.duration, v.views, v.is_published, v.created_at, v.updated_at,
        u.username, u.full_name, u.avatar_url`

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos
// and their like/save membership sets.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, category, video_url, thumbnail_url, duration, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, video.ID, video.OwnerID, video.Title, video.Category, video.VideoURL, video.ThumbnailURL, video.Duration, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a bare video record, used for ownership checks.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, title, category, video_url, thumbnail_url, duration, views, is_published, created_at, updated_at
        FROM videos
        WHERE id = $1
    `, id)

	var v models.Video
	if err := row.Scan(&v.ID, &v.OwnerID, &v.Title, &v.Category, &v.VideoURL, &v.ThumbnailURL, &v.Duration, &v.Views, &v.IsPublished, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return v, nil
}

// FindDetail loads a video with owner display fields and the viewer's
// engagement state. The view counter is incremented by the same statement
// that reads the record, so concurrent fetches never lose an increment.
func (r *PostgresVideoRepository) FindDetail(ctx context.Context, id, viewerID string) (models.VideoDetail, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoDetail{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        WITH bumped AS (
            UPDATE videos
            SET views = views + 1
            WHERE id = $1
            RETURNING id, owner_id, title, category, video_url, thumbnail_url, duration, views, is_published, created_at, updated_at
        )
        SELECT b.id, b.owner_id, b.title, b.category, b.video_url, b.thumbnail_url,
               b.duration, b.views, b.is_published, b.created_at, b.updated_at,
               u.username, u.full_name, u.avatar_url,
               (SELECT COUNT(*) FROM video_likes WHERE video_id = b.id),
               EXISTS (SELECT 1 FROM video_likes WHERE video_id = b.id AND user_id = NULLIF($2, '')::UUID),
               EXISTS (SELECT 1 FROM video_saves WHERE video_id = b.id AND user_id = NULLIF($2, '')::UUID)
        FROM bumped b
        JOIN users u ON u.id = b.owner_id
    `, id, viewerID)

	var d models.VideoDetail
	err = row.Scan(
		&d.ID, &d.OwnerID, &d.Title, &d.Category, &d.VideoURL, &d.ThumbnailURL,
		&d.Duration, &d.Views, &d.IsPublished, &d.CreatedAt, &d.UpdatedAt,
		&d.OwnerUsername, &d.OwnerFullName, &d.OwnerAvatar,
		&d.LikesCount, &d.IsLiked, &d.IsSaved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VideoDetail{}, ErrNotFound
		}
		return models.VideoDetail{}, fmt.Errorf("select video detail: %w", err)
	}

	return d, nil
}

// List returns published videos in reverse chronological order, optionally
// filtered by category, along with the total match count for paging.
func (r *PostgresVideoRepository) List(ctx context.Context, category string, page, limit int) ([]models.VideoSummary, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 12
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.is_published AND ($1 = '' OR v.category = $1)
        ORDER BY v.created_at DESC
        LIMIT $2 OFFSET $3
    `, category, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, fmt.Errorf("query videos: %w", err)
	}

	summaries, err := collectVideoSummaries(rows)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = conn.QueryRow(ctx, `
        SELECT COUNT(*)
        FROM videos
        WHERE is_published AND ($1 = '' OR category = $1)
    `, category).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count videos: %w", err)
	}

	return summaries, total, nil
}

// ListByOwner returns all videos uploaded by the provided user, newest first.
func (r *PostgresVideoRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.VideoSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM videos v
        JOIN users u ON u.id = v.owner_id
        WHERE v.owner_id = $1
        ORDER BY v.created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query owner videos: %w", err)
	}

	return collectVideoSummaries(rows)
}

// ListSavedBy returns videos in the user's save set, newest first.
func (r *PostgresVideoRepository) ListSavedBy(ctx context.Context, userID string) ([]models.VideoSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM video_saves s
        JOIN videos v ON v.id = s.video_id
        JOIN users u ON u.id = v.owner_id
        WHERE s.user_id = $1
        ORDER BY v.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query saved videos: %w", err)
	}

	return collectVideoSummaries(rows)
}

// Delete removes a video. Membership sets, comments and history rows cascade.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// UpdateDuration backfills the probed duration on an existing record. Probes
// for videos deleted in the meantime are silently dropped.
func (r *PostgresVideoRepository) UpdateDuration(ctx context.Context, videoID string, seconds float64) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `
        UPDATE videos
        SET duration = $2, updated_at = NOW()
        WHERE id = $1
    `, videoID, seconds); err != nil {
		return fmt.Errorf("update video duration: %w", err)
	}

	return nil
}

// ToggleLike flips the user's membership in the video's like set.
func (r *PostgresVideoRepository) ToggleLike(ctx context.Context, videoID, userID string) (models.ToggleResult, error) {
	return r.toggle(ctx, "video_likes", videoID, userID)
}

// ToggleSave flips the user's membership in the video's save set.
func (r *PostgresVideoRepository) ToggleSave(ctx context.Context, videoID, userID string) (models.ToggleResult, error) {
	return r.toggle(ctx, "video_saves", videoID, userID)
}

// toggle performs the membership flip and count read inside one retryable
// transaction, serialized per video by a row lock on the video record. The
// returned count therefore always agrees with the membership change that
// produced it, even under concurrent toggles from other users.
func (r *PostgresVideoRepository) toggle(ctx context.Context, table, videoID, userID string) (models.ToggleResult, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ToggleResult{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var result models.ToggleResult
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, `SELECT id FROM videos WHERE id = $1 FOR UPDATE`, videoID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("lock video: %w", err)
		}

		// table is one of two fixed identifiers, never caller input.
		tag, err := tx.Exec(ctx, `
            INSERT INTO `+table+` (video_id, user_id, created_at)
            VALUES ($1, $2, NOW())
            ON CONFLICT (video_id, user_id) DO NOTHING
        `, videoID, userID)
		if err != nil {
			return fmt.Errorf("insert membership: %w", err)
		}

		if tag.RowsAffected() > 0 {
			result.Active = true
		} else {
			if _, err := tx.Exec(ctx, `
                DELETE FROM `+table+`
                WHERE video_id = $1 AND user_id = $2
            `, videoID, userID); err != nil {
				return fmt.Errorf("delete membership: %w", err)
			}
			result.Active = false
		}

		if err := tx.QueryRow(ctx, `
            SELECT COUNT(*) FROM `+table+` WHERE video_id = $1
        `, videoID).Scan(&result.Count); err != nil {
			return fmt.Errorf("count membership: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.ToggleResult{}, ErrNotFound
		}
		return models.ToggleResult{}, fmt.Errorf("toggle %s: %w", table, err)
	}

	return result, nil
}

func collectVideoSummaries(rows pgx.Rows) ([]models.VideoSummary, error) {
	defer rows.Close()

	var summaries []models.VideoSummary
	for rows.Next() {
		var s models.VideoSummary
		err := rows.Scan(
			&s.ID, &s.OwnerID, &s.Title, &s.Category, &s.VideoURL, &s.ThumbnailURL,
			&s.Duration, &s.Views, &s.IsPublished, &s.CreatedAt, &s.UpdatedAt,
			&s.OwnerUsername, &s.OwnerFullName, &s.OwnerAvatar,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video summaries: %w", err)
	}

	return summaries, nil
}

var _ VideoRepository = (*PostgresVideoRepository)(nil)
