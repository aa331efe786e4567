package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// CommentRepository exposes data access for video comments.
type CommentRepository interface {
	Create(ctx context.Context, comment models.Comment) (models.CommentView, error)
	FindByID(ctx context.Context, id string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
	ListForVideo(ctx context.Context, videoID string) ([]models.CommentView, error)
}

// HistoryRepository records which videos a user has watched. Entries are
// deduplicated: replaying a video keeps the original add time.
type HistoryRepository interface {
	Record(ctx context.Context, userID, videoID string) error
	List(ctx context.Context, userID string) ([]models.HistoryEntry, error)
}
