package models

import "time"

// User represents an account within the ClipTube platform. A user doubles as
// a channel: SubscribersCount mirrors the number of active subscription
// records pointing at it and is only ever updated inside the same transaction
// that touches those records.
type User struct {
	ID               string
	Username         string
	Email            string
	FullName         string
	Password         string
	AvatarURL        string
	CoverImageURL    string
	SubscribersCount int64
	RefreshToken     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PublicProfile strips credential material from a user record.
func (u User) PublicProfile() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		FullName:         u.FullName,
		AvatarURL:        u.AvatarURL,
		CoverImageURL:    u.CoverImageURL,
		SubscribersCount: u.SubscribersCount,
		CreatedAt:        u.CreatedAt,
	}
}

// PublicUser is the externally visible projection of a user.
type PublicUser struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FullName         string    `json:"fullname"`
	AvatarURL        string    `json:"avatar"`
	CoverImageURL    string    `json:"coverImage"`
	SubscribersCount int64     `json:"subscribersCount"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Video categories accepted at upload time.
const (
	CategoryGeneral       = "General"
	CategoryEducation     = "Education"
	CategoryEntertainment = "Entertainment"
	CategoryTechnology    = "Technology"
	CategoryGaming        = "Gaming"
)

// ValidCategory reports whether the provided category is one of the known
// values. The empty string is valid because uploads default to General.
func ValidCategory(category string) bool {
	switch category {
	case "", CategoryGeneral, CategoryEducation, CategoryEntertainment, CategoryTechnology, CategoryGaming:
		return true
	}
	return false
}

// Video is an uploaded video record. Like and save membership live in their
// own set tables; counts are derived from those sets, never stored here.
type Video struct {
	ID           string
	OwnerID      string
	Title        string
	Category     string
	VideoURL     string
	ThumbnailURL string
	Duration     float64
	Views        int64
	IsPublished  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VideoSummary is a video expanded with its owner's display fields, used by
// feed, history and saved-video listings.
type VideoSummary struct {
	Video
	OwnerUsername string
	OwnerFullName string
	OwnerAvatar   string
}

// VideoDetail is a single video expanded with engagement state for the
// requesting viewer.
type VideoDetail struct {
	VideoSummary
	LikesCount int64
	IsLiked    bool
	IsSaved    bool
}

// ToggleResult reports the outcome of a like/save toggle. Active is the new
// membership state and Count the set size produced by the same atomic
// operation that flipped it.
type ToggleResult struct {
	Active bool  `json:"active"`
	Count  int64 `json:"count"`
}

// Subscription links a subscriber to a channel. At most one active record
// exists per (subscriber, channel) pair.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

// SubscriptionState is the authoritative post-operation view returned by
// subscribe and unsubscribe.
type SubscriptionState struct {
	Subscribed       bool  `json:"subscribed"`
	SubscribersCount int64 `json:"subscribersCount"`
}

// Comment is an owned child record attached to a video.
type Comment struct {
	ID        string
	VideoID   string
	OwnerID   string
	Content   string
	CreatedAt time.Time
}

// CommentView expands a comment with its owner's display fields.
type CommentView struct {
	Comment
	OwnerUsername string
	OwnerFullName string
	OwnerAvatar   string
}

// HistoryEntry is one deduplicated watch-history row for a user.
type HistoryEntry struct {
	VideoSummary
	AddedAt time.Time
}

// SessionTokens groups the signed credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
