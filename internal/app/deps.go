package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/config"
	"github.com/cliptube/backend/internal/db"
	"github.com/cliptube/backend/internal/handlers"
	"github.com/cliptube/backend/internal/media"
	"github.com/cliptube/backend/internal/middleware"
	"github.com/cliptube/backend/internal/repositories"
	"github.com/cliptube/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains background workers and must run
// during shutdown.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	objects, err := storage.NewS3Storage(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, fmt.Errorf("configure media storage: %w", err)
	}

	tokenStore := repositories.NewPostgresTokenStore(pool)
	sessions := auth.NewManager(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, tokenStore)

	videoRepo := repositories.NewPostgresVideoRepository(pool)

	prober := media.NewFFProbe(cfg.FFProbePath, cfg.ProbeTimeout)
	ingestor := media.NewDurationIngestor(prober, videoRepo, media.DurationIngestorConfig{
		QueueSize: cfg.ProbeQueueLen,
		Workers:   cfg.ProbeWorkers,
	}, slog.Default())

	deps := handlers.Dependencies{
		Users:         repositories.NewPostgresUserRepository(pool),
		Sessions:      sessions,
		Verifier:      sessions,
		Videos:        videoRepo,
		Comments:      repositories.NewPostgresCommentRepository(pool),
		Subscriptions: repositories.NewPostgresSubscriptionRepository(pool),
		History:       repositories.NewPostgresHistoryRepository(pool),
		Media:         objects,
		Durations:     ingestor,
		AuthLimiter:   middleware.NewIPRateLimiter(cfg.AuthRateRequests, cfg.AuthRateWindow, cfg.AuthRateBurst, 10*time.Minute),
	}

	return deps, ingestor.Shutdown, nil
}
