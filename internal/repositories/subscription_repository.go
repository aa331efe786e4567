package repositories

import (
	"context"

	"github.com/cliptube/backend/internal/models"
)

// SubscriptionRepository maintains the subscription ledger and the derived
// subscriber counter on the channel's user record. Both sides of each
// operation commit in a single transaction so the counter always equals the
// number of live records for the channel.
type SubscriptionRepository interface {
	// Subscribe is a no-op returning current state when the pair already
	// exists, which makes it safe to retry.
	Subscribe(ctx context.Context, subscriberID, channelID string) (models.SubscriptionState, error)
	// Unsubscribe treats an absent record as a no-op, not an error.
	Unsubscribe(ctx context.Context, subscriberID, channelID string) (models.SubscriptionState, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
}
