package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// VideoRepository exposes data access for uploaded videos and the engagement
// sets attached to them.
type VideoRepository interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	// FindDetail loads a video with owner display fields and the viewer's
	// engagement state, incrementing the view counter in the same statement.
	// viewerID may be empty for anonymous reads.
	FindDetail(ctx context.Context, id, viewerID string) (models.VideoDetail, error)
	List(ctx context.Context, category string, page, limit int) ([]models.VideoSummary, int64, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.VideoSummary, error)
	ListSavedBy(ctx context.Context, userID string) ([]models.VideoSummary, error)
	Delete(ctx context.Context, id string) error
	// UpdateDuration backfills the probed duration after upload.
	UpdateDuration(ctx context.Context, videoID string, seconds float64) error

	// ToggleLike and ToggleSave flip the viewer's membership in the video's
	// like/save set. Membership and count in the result come from the same
	// atomic operation that performed the flip.
	ToggleLike(ctx context.Context, videoID, userID string) (models.ToggleResult, error)
	ToggleSave(ctx context.Context, videoID, userID string) (models.ToggleResult, error)
}
