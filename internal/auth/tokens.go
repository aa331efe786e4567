package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cliptube/backend/internal/models"
)

var (
	// ErrInvalidToken indicates a token that is malformed, unsigned, or
	// signed with the wrong secret.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenReuse indicates a refresh token that no longer matches the
	// single value stored for the user. Either the token was already
	// consumed by a rotation or the session was revoked; in both cases the
	// caller must force a fresh login.
	ErrTokenReuse = errors.New("refresh token superseded or revoked")
)

// TokenStore persists the single active refresh token on the user record.
type TokenStore interface {
	SetRefreshToken(ctx context.Context, userID, token string) error
	// SwapRefreshToken replaces the stored token only if it still equals
	// presented, as one atomic compare-and-set. A mismatch must surface as
	// ErrTokenReuse.
	SwapRefreshToken(ctx context.Context, userID, presented, replacement string) error
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Manager issues, verifies and rotates signed session tokens. Access and
// refresh tokens are signed with distinct secrets so one can never stand in
// for the other.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store TokenStore

	nowFunc func() time.Time
}

// NewManager constructs a Manager with the provided secrets and TTLs.
func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store TokenStore) *Manager {
	if store == nil {
		panic("auth: token store must not be nil")
	}
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
		nowFunc:       func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source, used by tests to exercise expiry.
func (m *Manager) WithNowFunc(now func() time.Time) *Manager {
	m.nowFunc = now
	return m
}

// Issue creates a new access/refresh pair for the user and persists the
// refresh token on the user record, overwriting any prior value. Logging in
// on a second device therefore invalidates the first device's session.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.nowFunc()

	accessToken, err := m.sign(m.accessSecret, userID, now, m.accessTTL)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := m.sign(m.refreshSecret, userID, now, m.refreshTTL)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.store.SetRefreshToken(ctx, userID, refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}, nil
}

// VerifyAccess validates an access token's signature and expiry and returns
// the user id it carries. Expected failures come back as ErrTokenExpired or
// ErrInvalidToken, never as a panic or an opaque library error.
func (m *Manager) VerifyAccess(token string) (string, error) {
	return m.verify(m.accessSecret, token)
}

// Rotate exchanges a refresh token for a new pair. The presented token must
// exactly equal the value stored on the user record; the swap to the new
// value happens as one compare-and-set so a second, concurrent rotation with
// the same token loses the race and fails with ErrTokenReuse.
func (m *Manager) Rotate(ctx context.Context, presented string) (models.SessionTokens, error) {
	userID, err := m.verify(m.refreshSecret, presented)
	if err != nil {
		return models.SessionTokens{}, err
	}

	now := m.nowFunc()

	accessToken, err := m.sign(m.accessSecret, userID, now, m.accessTTL)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := m.sign(m.refreshSecret, userID, now, m.refreshTTL)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.store.SwapRefreshToken(ctx, userID, presented, refreshToken); err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}, nil
}

// Revoke clears the stored refresh token, ending the user's session
// everywhere. Subsequent rotations fail until a new login occurs.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id must be provided")
	}
	return m.store.ClearRefreshToken(ctx, userID)
}

func (m *Manager) sign(secret []byte, userID string, now time.Time, ttl time.Duration) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (m *Manager) verify(secret []byte, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.nowFunc))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
