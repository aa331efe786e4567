package handlers

import "net/http"

// RegisterRoutes wires HTTP handlers into the provided ServeMux.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	gate := Authenticator{Verifier: deps.Verifier}

	health := HealthHandler{}
	account := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Media: deps.Media, Limiter: deps.AuthLimiter}
	videos := VideoHandler{Videos: deps.Videos, History: deps.History, Media: deps.Media, Durations: deps.Durations}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions}

	mux.HandleFunc("/healthz", health.Handle)

	mux.HandleFunc("POST /api/v1/users/register", account.Register)
	mux.HandleFunc("POST /api/v1/users/login", account.Login)
	mux.HandleFunc("POST /api/v1/users/logout", gate.Require(account.Logout))
	mux.HandleFunc("POST /api/v1/users/refresh-token", account.Refresh)
	mux.HandleFunc("GET /api/v1/users/current-user", gate.Require(account.CurrentUser))
	mux.HandleFunc("POST /api/v1/users/change-password", gate.Require(account.ChangePassword))
	mux.HandleFunc("PATCH /api/v1/users/update-account", gate.Require(account.UpdateAccount))
	mux.HandleFunc("PATCH /api/v1/users/avatar", gate.Require(account.UpdateAvatar))
	mux.HandleFunc("PATCH /api/v1/users/cover-image", gate.Require(account.UpdateCoverImage))
	mux.HandleFunc("GET /api/v1/users/history", gate.Require(videos.ListHistory))

	mux.HandleFunc("POST /api/v1/users/subscribe/{channelId}", gate.Require(subscriptions.Subscribe))
	mux.HandleFunc("DELETE /api/v1/users/subscribe/{channelId}", gate.Require(subscriptions.Unsubscribe))
	mux.HandleFunc("GET /api/v1/users/subscribe/{channelId}", gate.Require(subscriptions.Status))

	mux.HandleFunc("POST /api/v1/videos", gate.Require(videos.Upload))
	mux.HandleFunc("GET /api/v1/videos", videos.List)
	mux.HandleFunc("GET /api/v1/videos/mine", gate.Require(videos.Mine))
	mux.HandleFunc("GET /api/v1/videos/saved", gate.Require(videos.Saved))
	mux.HandleFunc("GET /api/v1/videos/{id}", gate.Optional(videos.Detail))
	mux.HandleFunc("DELETE /api/v1/videos/{id}", gate.Require(videos.Delete))
	mux.HandleFunc("POST /api/v1/videos/{id}/like", gate.Require(videos.ToggleLike))
	mux.HandleFunc("POST /api/v1/videos/{id}/save", gate.Require(videos.ToggleSave))
	mux.HandleFunc("POST /api/v1/videos/{id}/history", gate.Require(videos.RecordHistory))

	mux.HandleFunc("GET /api/v1/videos/{id}/comments", comments.List)
	mux.HandleFunc("POST /api/v1/videos/{id}/comments", gate.Require(comments.Add))
	mux.HandleFunc("DELETE /api/v1/comments/{id}", gate.Require(comments.Delete))
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Verifier      TokenVerifier
	Videos        VideoStore
	Comments      CommentStore
	Subscriptions SubscriptionStore
	History       HistoryStore
	Media         MediaStore
	Durations     DurationProber
	AuthLimiter   RateLimiter
}
