package handlers

import (
	"errors"
	"net/http"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/repositories"
)

// SubscriptionHandler provides channel subscribe/unsubscribe endpoints.
type SubscriptionHandler struct {
	Subscriptions SubscriptionStore
}

// Subscribe handles POST /api/v1/users/subscribe/{channelId} requests. A
// repeated subscribe is a no-op that reports the current state.
func (h SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	state, err := h.Subscriptions.Subscribe(ctx, userID, r.PathValue("channelId"))
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrSelfSubscription):
			respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to yourself")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "channel not found")
		default:
			logging.FromContext(ctx).Error("subscribe failed", "error", err)
			respondError(ctx, w, http.StatusInternalServerError, "failed to subscribe")
		}
		return
	}

	respondData(ctx, w, http.StatusOK, state, "subscribed")
}

// Unsubscribe handles DELETE /api/v1/users/subscribe/{channelId} requests.
// Removing an absent subscription is a no-op.
func (h SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	state, err := h.Subscriptions.Unsubscribe(ctx, userID, r.PathValue("channelId"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel not found")
			return
		}
		logging.FromContext(ctx).Error("unsubscribe failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to unsubscribe")
		return
	}

	respondData(ctx, w, http.StatusOK, state, "unsubscribed")
}

// Status handles GET /api/v1/users/subscribe/{channelId} requests.
func (h SubscriptionHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.IdentityFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "authentication required")
		return
	}

	subscribed, err := h.Subscriptions.IsSubscribed(ctx, userID, r.PathValue("channelId"))
	if err != nil {
		logging.FromContext(ctx).Error("subscription status failed", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load subscription status")
		return
	}

	respondData(ctx, w, http.StatusOK, map[string]bool{"subscribed": subscribed}, "subscription status fetched")
}
