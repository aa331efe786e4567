package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cliptube/backend/internal/models"
	"github.com/cliptube/backend/internal/repositories"
)

// fakeSubscriptionStore mirrors the ledger semantics: the counter always
// equals the number of active records, duplicates and absent removals are
// no-ops.
type fakeSubscriptionStore struct {
	channels map[string]bool
	records  map[string]map[string]bool
}

func newFakeSubscriptionStore(channelIDs ...string) *fakeSubscriptionStore {
	store := &fakeSubscriptionStore{
		channels: make(map[string]bool),
		records:  make(map[string]map[string]bool),
	}
	for _, id := range channelIDs {
		store.channels[id] = true
	}
	return store
}

func (s *fakeSubscriptionStore) state(channelID string) models.SubscriptionState {
	return models.SubscriptionState{SubscribersCount: int64(len(s.records[channelID]))}
}

func (s *fakeSubscriptionStore) Subscribe(_ context.Context, subscriberID, channelID string) (models.SubscriptionState, error) {
	if subscriberID == channelID {
		return models.SubscriptionState{}, repositories.ErrSelfSubscription
	}
	if !s.channels[channelID] {
		return models.SubscriptionState{}, repositories.ErrNotFound
	}
	if s.records[channelID] == nil {
		s.records[channelID] = make(map[string]bool)
	}
	s.records[channelID][subscriberID] = true

	state := s.state(channelID)
	state.Subscribed = true
	return state, nil
}

func (s *fakeSubscriptionStore) Unsubscribe(_ context.Context, subscriberID, channelID string) (models.SubscriptionState, error) {
	if !s.channels[channelID] {
		return models.SubscriptionState{}, repositories.ErrNotFound
	}
	delete(s.records[channelID], subscriberID)
	return s.state(channelID), nil
}

func (s *fakeSubscriptionStore) IsSubscribed(_ context.Context, subscriberID, channelID string) (bool, error) {
	return s.records[channelID][subscriberID], nil
}

func subscribeRequest(t *testing.T, handler SubscriptionHandler, method, userID, channelID string) (*httptest.ResponseRecorder, models.SubscriptionState) {
	t.Helper()

	req := pathRequest(method, "/api/v1/users/subscribe/"+channelID, nil, userID, map[string]string{"channelId": channelID})
	rec := httptest.NewRecorder()

	switch method {
	case http.MethodPost:
		handler.Subscribe(rec, req)
	case http.MethodDelete:
		handler.Unsubscribe(rec, req)
	}

	var state models.SubscriptionState
	if rec.Code == http.StatusOK {
		decodeEnvelope(t, rec, &state)
	}
	return rec, state
}

func TestSubscriptionHandlerSubscribe(t *testing.T) {
	store := newFakeSubscriptionStore("channel-1")
	handler := SubscriptionHandler{Subscriptions: store}

	rec, state := subscribeRequest(t, handler, http.MethodPost, "user-1", "channel-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if !state.Subscribed || state.SubscribersCount != 1 {
		t.Fatalf("unexpected state %+v", state)
	}

	// Subscribing again is a no-op reporting the unchanged count.
	rec, state = subscribeRequest(t, handler, http.MethodPost, "user-1", "channel-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if !state.Subscribed || state.SubscribersCount != 1 {
		t.Fatalf("expected unchanged state, got %+v", state)
	}
}

func TestSubscriptionHandlerSelfSubscribe(t *testing.T) {
	handler := SubscriptionHandler{Subscriptions: newFakeSubscriptionStore("user-1")}

	rec, _ := subscribeRequest(t, handler, http.MethodPost, "user-1", "user-1")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestSubscriptionHandlerSubscribeUnknownChannel(t *testing.T) {
	handler := SubscriptionHandler{Subscriptions: newFakeSubscriptionStore()}

	rec, _ := subscribeRequest(t, handler, http.MethodPost, "user-1", "missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestSubscriptionHandlerUnsubscribe(t *testing.T) {
	store := newFakeSubscriptionStore("channel-1")
	handler := SubscriptionHandler{Subscriptions: store}

	if _, err := store.Subscribe(context.Background(), "user-1", "channel-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	rec, state := subscribeRequest(t, handler, http.MethodDelete, "user-1", "channel-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if state.Subscribed || state.SubscribersCount != 0 {
		t.Fatalf("unexpected state %+v", state)
	}

	// Removing an absent subscription stays a no-op.
	rec, state = subscribeRequest(t, handler, http.MethodDelete, "user-1", "channel-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	if state.SubscribersCount != 0 {
		t.Fatalf("expected count to remain 0, got %+v", state)
	}
}

func TestSubscriptionHandlerStatus(t *testing.T) {
	store := newFakeSubscriptionStore("channel-1")
	handler := SubscriptionHandler{Subscriptions: store}

	if _, err := store.Subscribe(context.Background(), "user-1", "channel-1"); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	req := pathRequest(http.MethodGet, "/api/v1/users/subscribe/channel-1", nil, "user-1", map[string]string{"channelId": "channel-1"})
	rec := httptest.NewRecorder()
	handler.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}
	var status map[string]bool
	decodeEnvelope(t, rec, &status)
	if !status["subscribed"] {
		t.Fatalf("expected subscribed=true, got %v", status)
	}
}
