package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// CommentHandler provides comment CRUD endpoints.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

// List handles GET /api/v1/videos/{id}/comments requests.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	comments, err := h.Comments.ListForVideo(ctx, r.PathValue("id"))
	if err != nil {
		logging.FromContext(ctx).Error("failed to list comments", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load comments")
		return
	}

	views := make([]commentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, newCommentView(c))
	}

	respondData(ctx, w, http.StatusOK, views, "comments fetched")
}

// Add handles POST /api/v1/videos/{id}/comments requests.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		respondError(ctx, w, http.StatusBadRequest, "comment content is required")
		return
	}

	videoID := r.PathValue("id")
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to load video for comment", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to add comment")
		return
	}

	view, err := h.Comments.Create(ctx, models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   userID,
		Content:   content,
		CreatedAt: h.now(),
	})
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to create comment", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to add comment")
		return
	}

	respondData(ctx, w, http.StatusCreated, newCommentView(view), "comment added")
}

// Delete handles DELETE /api/v1/comments/{id} requests. Only the comment's
// owner may delete it.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	comment, err := h.Comments.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("failed to load comment", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	if comment.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "not allowed to delete this comment")
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "comment not found")
			return
		}
		logger.Error("failed to delete comment", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "comment deleted")
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type addCommentRequest struct {
	Content string `json:"content"`
}

type commentView struct {
	ID        string    `json:"id"`
	VideoID   string    `json:"videoId"`
	Owner     ownerView `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func newCommentView(c models.CommentView) commentView {
	return commentView{
		ID:      c.ID,
		VideoID: c.VideoID,
		Owner: ownerView{
			ID:       c.OwnerID,
			Username: c.OwnerUsername,
			FullName: c.OwnerFullName,
			Avatar:   c.OwnerAvatar,
		},
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}
