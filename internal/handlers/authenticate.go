package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
)

// Cookie names shared with browser clients; non-browser clients may send the
// access token as a bearer header instead.
const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// TokenVerifier validates an access token and returns the user id it proves.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// Authenticator gates protected handlers. It extracts the access token from
// the transport credential, verifies it, and attaches the identity to the
// request context. The wrapped handler never runs for an unauthenticated
// caller.
type Authenticator struct {
	Verifier TokenVerifier
}

// Require rejects requests without a valid access token.
func (a Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, ok := extractAccessToken(r)
		if !ok {
			respondError(ctx, w, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, err := a.Verifier.VerifyAccess(token)
		if err != nil {
			message := "invalid access token"
			if errors.Is(err, auth.ErrTokenExpired) {
				message = "access token expired"
			}
			respondError(ctx, w, http.StatusUnauthorized, message)
			return
		}

		logger := logging.FromContext(ctx).With("user_id", userID)
		ctx = logging.WithLogger(ctx, logger)
		ctx = auth.WithIdentity(ctx, userID)

		next(w, r.WithContext(ctx))
	}
}

// Optional attaches an identity when a valid access token is present but
// lets the request proceed either way. Used by public reads that enrich
// their response for signed-in viewers.
func (a Authenticator) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := extractAccessToken(r)
		if !ok {
			next(w, r)
			return
		}

		userID, err := a.Verifier.VerifyAccess(token)
		if err != nil {
			next(w, r)
			return
		}

		ctx := auth.WithIdentity(r.Context(), userID)
		next(w, r.WithContext(ctx))
	}
}

func extractAccessToken(r *http.Request) (string, bool) {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value, true
	}

	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if rest, found := strings.CutPrefix(header, "Bearer "); found {
		rest = strings.TrimSpace(rest)
		if rest != "" {
			return rest, true
		}
	}

	return "", false
}
