package repositories

import (
	"context"
	"errors"
	"fmt"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/models"
)

// PostgresSubscriptionRepository maintains subscription records and the
// derived subscriber counter on the channel's user row. The record write and
// the counter update always commit in the same transaction; locking the
// channel row first serializes concurrent operations on one channel, which
// keeps the counter equal to the live record count under any interleaving.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository
// backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Subscribe creates a subscription record and increments the channel's
// subscriber counter. An existing record makes the call a no-op that reports
// the current state, so retries are harmless.
func (r *PostgresSubscriptionRepository) Subscribe(ctx context.Context, subscriberID, channelID string) (models.SubscriptionState, error) {
	if subscriberID == channelID {
		return models.SubscriptionState{}, ErrSelfSubscription
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.SubscriptionState{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var state models.SubscriptionState
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		count, err := lockChannel(ctx, tx, channelID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
            INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at)
            VALUES ($1, $2, $3, NOW())
            ON CONFLICT (subscriber_id, channel_id) DO NOTHING
        `, uuid.NewString(), subscriberID, channelID)
		if err != nil {
			return fmt.Errorf("insert subscription: %w", err)
		}

		if tag.RowsAffected() == 0 {
			state = models.SubscriptionState{Subscribed: true, SubscribersCount: count}
			return nil
		}

		if err := tx.QueryRow(ctx, `
            UPDATE users
            SET subscribers_count = subscribers_count + 1
            WHERE id = $1
            RETURNING subscribers_count
        `, channelID).Scan(&count); err != nil {
			return fmt.Errorf("increment subscribers: %w", err)
		}

		state = models.SubscriptionState{Subscribed: true, SubscribersCount: count}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.SubscriptionState{}, ErrNotFound
		}
		return models.SubscriptionState{}, fmt.Errorf("subscribe: %w", err)
	}

	return state, nil
}

// Unsubscribe removes the subscription record and decrements the channel's
// subscriber counter. An absent record is a no-op, not an error.
func (r *PostgresSubscriptionRepository) Unsubscribe(ctx context.Context, subscriberID, channelID string) (models.SubscriptionState, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.SubscriptionState{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var state models.SubscriptionState
	err = crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{}, func(tx pgx.Tx) error {
		count, err := lockChannel(ctx, tx, channelID)
		if err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `
            DELETE FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
        `, subscriberID, channelID)
		if err != nil {
			return fmt.Errorf("delete subscription: %w", err)
		}

		if tag.RowsAffected() == 0 {
			state = models.SubscriptionState{Subscribed: false, SubscribersCount: count}
			return nil
		}

		if err := tx.QueryRow(ctx, `
            UPDATE users
            SET subscribers_count = subscribers_count - 1
            WHERE id = $1
            RETURNING subscribers_count
        `, channelID).Scan(&count); err != nil {
			return fmt.Errorf("decrement subscribers: %w", err)
		}

		state = models.SubscriptionState{Subscribed: false, SubscribersCount: count}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.SubscriptionState{}, ErrNotFound
		}
		return models.SubscriptionState{}, fmt.Errorf("unsubscribe: %w", err)
	}

	return state, nil
}

// IsSubscribed reports whether an active record links the pair.
func (r *PostgresSubscriptionRepository) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var subscribed bool
	err = conn.QueryRow(ctx, `
        SELECT EXISTS (
            SELECT 1 FROM subscriptions
            WHERE subscriber_id = $1 AND channel_id = $2
        )
    `, subscriberID, channelID).Scan(&subscribed)
	if err != nil {
		return false, fmt.Errorf("select subscription: %w", err)
	}

	return subscribed, nil
}

func lockChannel(ctx context.Context, tx pgx.Tx, channelID string) (int64, error) {
	var count int64
	if err := tx.QueryRow(ctx, `
        SELECT subscribers_count FROM users WHERE id = $1 FOR UPDATE
    `, channelID).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lock channel: %w", err)
	}
	return count, nil
}

var _ SubscriptionRepository = (*PostgresSubscriptionRepository)(nil)
