package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const maxVideoUploadBytes = 512 << 20

// VideoHandler provides upload, listing, engagement and history endpoints.
type VideoHandler struct {
	Videos    VideoStore
	History   HistoryStore
	Media     MediaStore
	Durations DurationProber
	NowFunc   func() time.Time
}

// Upload handles POST /api/v1/videos requests (multipart).
func (h VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxVideoUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		respondError(ctx, w, http.StatusBadRequest, "title is required")
		return
	}

	category := strings.TrimSpace(r.FormValue("category"))
	if !models.ValidCategory(category) {
		respondError(ctx, w, http.StatusBadRequest, "unknown category")
		return
	}
	if category == "" {
		category = models.CategoryGeneral
	}

	videoFile, videoHeader, err := r.FormFile("video")
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "video file is required")
		return
	}
	defer videoFile.Close()

	videoID := uuid.NewString()

	// Stage the upload on disk so the duration probe can inspect it after
	// the response is sent.
	stagedPath, err := stageUpload(videoFile)
	if err != nil {
		logger.Error("failed to stage upload", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video")
		return
	}
	keepStaged := false
	defer func() {
		if !keepStaged {
			if err := os.Remove(stagedPath); err != nil {
				logger.Warn("failed to remove staged upload", "error", err)
			}
		}
	}()

	staged, err := os.Open(stagedPath)
	if err != nil {
		logger.Error("failed to reopen staged upload", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video")
		return
	}
	defer staged.Close()

	videoKey := fmt.Sprintf("videos/%s%s", videoID, filepath.Ext(videoHeader.Filename))
	videoURL, err := h.Media.Save(ctx, videoKey, staged)
	if err != nil {
		logger.Error("video upload failed", "error", err)
		respondError(ctx, w, http.StatusBadGateway, "media storage unavailable")
		return
	}

	thumbnailURL := ""
	if thumbFile, thumbHeader, err := r.FormFile("thumbnail"); err == nil {
		defer thumbFile.Close()
		thumbKey := fmt.Sprintf("thumbnails/%s%s", videoID, filepath.Ext(thumbHeader.Filename))
		thumbnailURL, err = h.Media.Save(ctx, thumbKey, thumbFile)
		if err != nil {
			logger.Error("thumbnail upload failed", "error", err)
			respondError(ctx, w, http.StatusBadGateway, "media storage unavailable")
			return
		}
	}

	now := h.now()
	video := models.Video{
		ID:           videoID,
		OwnerID:      userID,
		Title:        title,
		Category:     category,
		VideoURL:     videoURL,
		ThumbnailURL: thumbnailURL,
		IsPublished:  true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.Videos.Create(ctx, video); err != nil {
		// The record write failed after the binary upload; clean up the
		// orphaned objects best-effort.
		if rmErr := h.Media.Remove(ctx, videoURL); rmErr != nil {
			logger.Warn("failed to remove orphaned video object", "error", rmErr)
		}
		if thumbnailURL != "" {
			if rmErr := h.Media.Remove(ctx, thumbnailURL); rmErr != nil {
				logger.Warn("failed to remove orphaned thumbnail object", "error", rmErr)
			}
		}
		logger.Error("failed to create video record", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to store video")
		return
	}

	if h.Durations != nil {
		if err := h.Durations.Enqueue(ctx, videoID, stagedPath); err != nil {
			logger.Warn("failed to schedule duration probe", "error", err, "videoId", videoID)
		} else {
			keepStaged = true
		}
	}

	respondData(ctx, w, http.StatusCreated, video, "video uploaded successfully")
}

// stageUpload copies the request stream to a temp file and returns its path.
func stageUpload(r io.Reader) (string, error) {
	staged, err := os.CreateTemp("", "cliptube-upload-*")
	if err != nil {
		return "", fmt.Errorf("create staging file: %w", err)
	}

	if _, err := io.Copy(staged, r); err != nil {
		staged.Close()
		os.Remove(staged.Name())
		return "", fmt.Errorf("stage upload: %w", err)
	}

	if err := staged.Close(); err != nil {
		os.Remove(staged.Name())
		return "", fmt.Errorf("close staging file: %w", err)
	}

	return staged.Name(), nil
}

// List handles GET /api/v1/videos requests.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "All" {
		category = ""
	}
	if !models.ValidCategory(category) {
		respondError(ctx, w, http.StatusBadRequest, "unknown category")
		return
	}

	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 12)

	videos, total, err := h.Videos.List(ctx, category, page, limit)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load videos")
		return
	}

	respondData(ctx, w, http.StatusOK, listResponse{
		Videos: summariesResponse(videos),
		Total:  total,
		Page:   page,
	}, "videos fetched successfully")
}

// Detail handles GET /api/v1/videos/{id} requests. Signed-in viewers get
// their like/save state alongside the public fields.
func (h VideoHandler) Detail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	viewerID, _ := auth.IdentityFromContext(ctx)

	detail, err := h.Videos.FindDetail(ctx, r.PathValue("id"), viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("failed to load video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	respondData(ctx, w, http.StatusOK, detailResponse(detail), "video fetched successfully")
}

// Mine handles GET /api/v1/videos/mine requests.
func (h VideoHandler) Mine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videos, err := h.Videos.ListByOwner(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list own videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load videos")
		return
	}

	respondData(ctx, w, http.StatusOK, summariesResponse(videos), "my videos fetched")
}

// Saved handles GET /api/v1/videos/saved requests.
func (h VideoHandler) Saved(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	videos, err := h.Videos.ListSavedBy(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list saved videos", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load videos")
		return
	}

	respondData(ctx, w, http.StatusOK, summariesResponse(videos), "saved videos fetched")
}

// Delete handles DELETE /api/v1/videos/{id} requests. Only the owner may
// delete a video.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	video, err := h.Videos.FindByID(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to load video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load video")
		return
	}

	if video.OwnerID != userID {
		respondError(ctx, w, http.StatusForbidden, "not allowed to delete this video")
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logger.Error("failed to delete video", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to delete video")
		return
	}

	// Media cleanup is best-effort; the record is already gone.
	if err := h.Media.Remove(ctx, video.VideoURL); err != nil {
		logger.Warn("failed to remove video object", "error", err, "videoId", video.ID)
	}
	if video.ThumbnailURL != "" {
		if err := h.Media.Remove(ctx, video.ThumbnailURL); err != nil {
			logger.Warn("failed to remove thumbnail object", "error", err, "videoId", video.ID)
		}
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// ToggleLike handles POST /api/v1/videos/{id}/like requests. The response
// carries the new membership state and count; clients must treat it as
// authoritative rather than assuming which direction the toggle went.
func (h VideoHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Videos.ToggleLike, "like toggled")
}

// ToggleSave handles POST /api/v1/videos/{id}/save requests.
func (h VideoHandler) ToggleSave(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Videos.ToggleSave, "save toggled")
}

func (h VideoHandler) toggle(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, videoID, userID string) (models.ToggleResult, error), message string) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	result, err := op(ctx, r.PathValue("id"), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Error("toggle failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update engagement")
		return
	}

	respondData(ctx, w, http.StatusOK, result, message)
}

// RecordHistory handles POST /api/v1/videos/{id}/history requests. The
// append is best-effort: a missing video is reported, but a store failure is
// logged without failing the request that triggered it.
func (h VideoHandler) RecordHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.History.Record(ctx, userID, r.PathValue("id")); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "video not found")
			return
		}
		logging.FromContext(ctx).Warn("failed to record watch history", "error", err, "userId", userID)
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "added to history")
}

// ListHistory handles GET /api/v1/users/history requests.
func (h VideoHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	entries, err := h.History.List(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("failed to list watch history", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load history")
		return
	}

	views := make([]historyView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, historyView{
			videoView: summaryView(entry.VideoSummary),
			AddedAt:   entry.AddedAt,
		})
	}

	respondData(ctx, w, http.StatusOK, views, "history fetched")
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < 1 {
		return fallback
	}
	return i
}

// videoView is the wire shape for a video with owner display fields.
type videoView struct {
	ID           string    `json:"id"`
	Owner        ownerView `json:"owner"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	VideoURL     string    `json:"videoUrl"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Duration     float64   `json:"duration"`
	Views        int64     `json:"views"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ownerView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullname"`
	Avatar   string `json:"avatar"`
}

type detailView struct {
	videoView
	LikesCount int64 `json:"likesCount"`
	IsLiked    bool  `json:"isLiked"`
	IsSaved    bool  `json:"isSaved"`
}

type historyView struct {
	videoView
	AddedAt time.Time `json:"addedAt"`
}

type listResponse struct {
	Videos []videoView `json:"videos"`
	Total  int64       `json:"total"`
	Page   int         `json:"page"`
}

func summaryView(s models.VideoSummary) videoView {
	return videoView{
		ID: s.ID,
		Owner: ownerView{
			ID:       s.OwnerID,
			Username: s.OwnerUsername,
			FullName: s.OwnerFullName,
			Avatar:   s.OwnerAvatar,
		},
		Title:        s.Title,
		Category:     s.Category,
		VideoURL:     s.VideoURL,
		ThumbnailURL: s.ThumbnailURL,
		Duration:     s.Duration,
		Views:        s.Views,
		IsPublished:  s.IsPublished,
		CreatedAt:    s.CreatedAt,
	}
}

func summariesResponse(summaries []models.VideoSummary) []videoView {
	views := make([]videoView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, summaryView(s))
	}
	return views
}

func detailResponse(d models.VideoDetail) detailView {
	return detailView{
		videoView:  summaryView(d.VideoSummary),
		LikesCount: d.LikesCount,
		IsLiked:    d.IsLiked,
		IsSaved:    d.IsSaved,
	}
}
