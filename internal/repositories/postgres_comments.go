package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresCommentRepository provides PostgreSQL-backed persistence for
// video comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create persists a new comment and returns it expanded with the owner's
// display fields.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) (models.CommentView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.CommentView{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        WITH inserted AS (
            INSERT INTO comments (id, video_id, owner_id, content, created_at)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING id, video_id, owner_id, content, created_at
        )
        SELECT i.id, i.video_id, i.owner_id, i.content, i.created_at,
               u.username, u.full_name, u.avatar_url
        FROM inserted i
        JOIN users u ON u.id = i.owner_id
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt)

	var view models.CommentView
	err = row.Scan(
		&view.ID, &view.VideoID, &view.OwnerID, &view.Content, &view.CreatedAt,
		&view.OwnerUsername, &view.OwnerFullName, &view.OwnerAvatar,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return models.CommentView{}, ErrNotFound
		}
		return models.CommentView{}, fmt.Errorf("insert comment: %w", err)
	}

	return view, nil
}

// FindByID fetches a comment, used for ownership checks before deletion.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Comment{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, video_id, owner_id, content, created_at
        FROM comments
        WHERE id = $1
    `, id)

	var c models.Comment
	if err := row.Scan(&c.ID, &c.VideoID, &c.OwnerID, &c.Content, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Comment{}, ErrNotFound
		}
		return models.Comment{}, fmt.Errorf("select comment: %w", err)
	}

	return c, nil
}

// Delete removes a comment by id.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListForVideo returns a video's comments, most recent first.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID string) ([]models.CommentView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT c.id, c.video_id, c.owner_id, c.content, c.created_at,
               u.username, u.full_name, u.avatar_url
        FROM comments c
        JOIN users u ON u.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC
    `, videoID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var views []models.CommentView
	for rows.Next() {
		var view models.CommentView
		err := rows.Scan(
			&view.ID, &view.VideoID, &view.OwnerID, &view.Content, &view.CreatedAt,
			&view.OwnerUsername, &view.OwnerFullName, &view.OwnerAvatar,
		)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return views, nil
}

var _ CommentRepository = (*PostgresCommentRepository)(nil)
