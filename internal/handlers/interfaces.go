package handlers

import (
	"context"
	"io"

	"github.com/cliptube/backend/internal/models"
)

// UserStore captures the persistence operations required by the account handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, login string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, coverImageURL string) (models.User, error)
}

// SessionManager issues, rotates and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Rotate(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore captures persistence for videos and their engagement sets.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	FindDetail(ctx context.Context, id, viewerID string) (models.VideoDetail, error)
	List(ctx context.Context, category string, page, limit int) ([]models.VideoSummary, int64, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.VideoSummary, error)
	ListSavedBy(ctx context.Context, userID string) ([]models.VideoSummary, error)
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, videoID, userID string) (models.ToggleResult, error)
	ToggleSave(ctx context.Context, videoID, userID string) (models.ToggleResult, error)
}

// SubscriptionStore maintains the subscription ledger.
type SubscriptionStore interface {
	Subscribe(ctx context.Context, subscriberID, channelID string) (models.SubscriptionState, error)
	Unsubscribe(ctx context.Context, subscriberID, channelID string) (models.SubscriptionState, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
}

// CommentStore captures persistence for video comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) (models.CommentView, error)
	FindByID(ctx context.Context, id string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
	ListForVideo(ctx context.Context, videoID string) ([]models.CommentView, error)
}

// HistoryStore records and lists per-user watch history.
type HistoryStore interface {
	Record(ctx context.Context, userID, videoID string) error
	List(ctx context.Context, userID string) ([]models.HistoryEntry, error)
}

// DurationProber schedules background duration probing for a staged upload.
// The prober takes ownership of the staged file.
type DurationProber interface {
	Enqueue(ctx context.Context, videoID, path string) error
}

// MediaStore persists media binaries with an external object store.
type MediaStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Remove(ctx context.Context, location string) error
}
