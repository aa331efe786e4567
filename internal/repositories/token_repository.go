package repositories

import (
	"context"
	"fmt"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/db"
)

// PostgresTokenStore persists the single active refresh token on the user
// record. Keeping exactly one value per user makes "logout everywhere" a
// single clear and turns replay of a consumed token into a failed
// compare-and-set.
type PostgresTokenStore struct {
	pool db.Pool
}

// NewPostgresTokenStore constructs a token store backed by PostgreSQL.
func NewPostgresTokenStore(pool db.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool}
}

// SetRefreshToken overwrites the stored refresh token for the user.
func (s *PostgresTokenStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $2
        WHERE id = $1
    `, userID, token)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// SwapRefreshToken replaces the stored token only if it still equals
// presented. The conditional update is a single statement, so two rotations
// racing on the same token resolve serially: the loser matches nothing and
// gets auth.ErrTokenReuse. A deleted user surfaces the same way, since
// either case must force a fresh login.
func (s *PostgresTokenStore) SwapRefreshToken(ctx context.Context, userID, presented, replacement string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2 AND refresh_token <> ''
    `, userID, presented, replacement)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return auth.ErrTokenReuse
	}

	return nil
}

// ClearRefreshToken removes the stored refresh token, ending the session.
func (s *PostgresTokenStore) ClearRefreshToken(ctx context.Context, userID string) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET refresh_token = ''
        WHERE id = $1
    `, userID)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

var _ auth.TokenStore = (*PostgresTokenStore)(nil)
