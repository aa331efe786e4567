package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

const maxImageUploadBytes = 8 << 20

// AuthHandler implements registration, login and account endpoints.
type AuthHandler struct {
	Users    UserStore
	Sessions SessionManager
	Media    MediaStore
	Limiter  RateLimiter
	NowFunc  func() time.Time
}

// Register handles POST /api/v1/users/register requests.
func (h AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "register") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many attempts, slow down")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(strings.ToLower(req.Username))
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)

	if req.Username == "" || req.Email == "" || req.FullName == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "all fields are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	now := h.now()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  req.Username,
		Email:     req.Email,
		FullName:  req.FullName,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			respondError(ctx, w, http.StatusConflict, "user with username or email already exists")
			return
		}
		logger.Error("failed to create user", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create account")
		return
	}

	respondData(ctx, w, http.StatusCreated, user.PublicProfile(), "user registered successfully")
}

// Login handles POST /api/v1/users/login requests.
func (h AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "login") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many attempts, slow down")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	login := strings.TrimSpace(strings.ToLower(req.Login))
	if login == "" {
		login = strings.TrimSpace(strings.ToLower(req.Username))
	}
	if login == "" {
		login = strings.TrimSpace(strings.ToLower(req.Email))
	}

	if login == "" || req.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	user, err := h.Users.FindByLogin(ctx, login)
	if err != nil {
		logger.Warn("login user lookup failed", "login", login, "error", err)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "userId", user.ID)
		respondError(ctx, w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to create session")
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, sessionResponse{
		User:   user.PublicProfile(),
		Tokens: tokens,
	}, "logged in successfully")
}

// Logout handles POST /api/v1/users/logout requests. It revokes the stored
// refresh token, ending the session on every device.
func (h AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.Sessions.Revoke(ctx, userID); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			logger.Error("failed to revoke session", "error", err, "userId", userID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to end session")
			return
		}
	}

	clearSessionCookies(w)
	respondData(ctx, w, http.StatusOK, struct{}{}, "logged out")
}

// Refresh handles POST /api/v1/users/refresh-token requests. The presented
// refresh token is consumed whether it arrives as a cookie or in the body;
// a token that was already consumed fails and forces a fresh login.
func (h AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if !allowRequest(h.Limiter, r, "refresh") {
		respondError(ctx, w, http.StatusTooManyRequests, "too many attempts, slow down")
		return
	}

	presented := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		presented = cookie.Value
	}
	if presented == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = strings.TrimSpace(req.RefreshToken)
		}
	}

	if presented == "" {
		respondError(ctx, w, http.StatusUnauthorized, "refresh token is required")
		return
	}

	tokens, err := h.Sessions.Rotate(ctx, presented)
	if err != nil {
		clearSessionCookies(w)
		switch {
		case errors.Is(err, auth.ErrTokenReuse):
			logger.Warn("refresh token reuse detected")
			respondError(ctx, w, http.StatusUnauthorized, "refresh token already used or revoked, login again")
		case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrInvalidToken):
			respondError(ctx, w, http.StatusUnauthorized, "invalid refresh token")
		default:
			logger.Error("refresh failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "unable to refresh session")
		}
		return
	}

	setSessionCookies(w, tokens)
	respondData(ctx, w, http.StatusOK, tokens, "session refreshed")
}

// CurrentUser handles GET /api/v1/users/current-user requests.
func (h AuthHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "user not found")
			return
		}
		logging.FromContext(ctx).Error("current user lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load user")
		return
	}

	respondData(ctx, w, http.StatusOK, user.PublicProfile(), "current user fetched")
}

// ChangePassword handles POST /api/v1/users/change-password requests.
func (h AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.OldPassword == "" || req.NewPassword == "" {
		respondError(ctx, w, http.StatusBadRequest, "old and new passwords are required")
		return
	}
	if len(req.NewPassword) < 8 {
		respondError(ctx, w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		logger.Error("change password lookup failed", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load user")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid password")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to hash password", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to secure password")
		return
	}

	if err := h.Users.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		logger.Error("failed to update password", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to change password")
		return
	}

	respondData(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account requests.
func (h AuthHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" || req.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "fullname and email are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid email address")
		return
	}

	user, err := h.Users.UpdateAccount(ctx, userID, req.FullName, req.Email)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "email already in use")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "user not found")
		default:
			logging.FromContext(ctx).Error("failed to update account", "error", err, "userId", userID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to update account")
		}
		return
	}

	respondData(ctx, w, http.StatusOK, user.PublicProfile(), "account details updated")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar requests (multipart).
func (h AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.Users.UpdateAvatar)
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image requests (multipart).
func (h AuthHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.Users.UpdateCoverImage)
}

func (h AuthHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, update func(ctx context.Context, id, location string) (models.User, error)) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxImageUploadBytes); err != nil {
		respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("%s file is required", field))
		return
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, fmt.Sprintf("%s file is required", field))
		return
	}
	defer file.Close()

	key := fmt.Sprintf("images/%s%s", uuid.NewString(), filepath.Ext(header.Filename))
	location, err := h.Media.Save(ctx, key, file)
	if err != nil {
		logger.Error("image upload failed", "error", err, "field", field)
		respondError(ctx, w, http.StatusBadGateway, "media storage unavailable")
		return
	}

	user, err := update(ctx, userID, location)
	if err != nil {
		logger.Error("failed to store image location", "error", err, "userId", userID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to update profile image")
		return
	}

	respondData(ctx, w, http.StatusOK, user.PublicProfile(), fmt.Sprintf("%s updated successfully", field))
}

func setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    tokens.AccessToken,
		Expires:  tokens.AccessExpiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    tokens.RefreshToken,
		Expires:  tokens.RefreshExpiresAt,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullname"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullname"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	User   models.PublicUser    `json:"user"`
	Tokens models.SessionTokens `json:"tokens"`
}

func (h AuthHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}
