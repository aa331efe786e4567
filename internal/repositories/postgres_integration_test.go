package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	user := models.User{
		ID:        uuid.NewString(),
		Username:  "alice",
		Email:     "alice@example.com",
		FullName:  "Alice Example",
		Password:  "secret-hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := user
	dup.ID = uuid.NewString()
	dup.Username = "alice2"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	byUsername, err := repo.FindByLogin(ctx, "alice")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	byEmail, err := repo.FindByLogin(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if byUsername.ID != user.ID || byEmail.ID != user.ID {
		t.Fatalf("expected same user via username and email, got %q and %q", byUsername.ID, byEmail.ID)
	}

	updated, err := repo.UpdateAccount(ctx, user.ID, "Alice Cooper", "cooper@example.com")
	if err != nil {
		t.Fatalf("update account: %v", err)
	}
	if updated.FullName != "Alice Cooper" || updated.Email != "cooper@example.com" {
		t.Fatalf("unexpected account after update: %+v", updated)
	}

	if err := repo.UpdatePassword(ctx, user.ID, "rotated-hash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	fetched, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if fetched.Password != "rotated-hash" {
		t.Fatalf("expected rotated password hash, got %q", fetched.Password)
	}

	withAvatar, err := repo.UpdateAvatar(ctx, user.ID, "https://cdn.test/images/a.png")
	if err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	if withAvatar.AvatarURL != "https://cdn.test/images/a.png" {
		t.Fatalf("expected avatar url to persist, got %q", withAvatar.AvatarURL)
	}

	if _, err := repo.FindByID(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
	if _, err := repo.UpdateAccount(ctx, uuid.NewString(), "Nobody", "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestPostgresTokenStore_SwapIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, userRepo, "owner")

	store := NewPostgresTokenStore(testPool)

	if err := store.SetRefreshToken(ctx, user.ID, "token-1"); err != nil {
		t.Fatalf("set refresh token: %v", err)
	}
	if err := store.SetRefreshToken(ctx, uuid.NewString(), "token-x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	if err := store.SwapRefreshToken(ctx, user.ID, "token-1", "token-2"); err != nil {
		t.Fatalf("swap refresh token: %v", err)
	}

	// The consumed value no longer matches; a second swap loses the race.
	if err := store.SwapRefreshToken(ctx, user.ID, "token-1", "token-3"); !errors.Is(err, auth.ErrTokenReuse) {
		t.Fatalf("expected ErrTokenReuse swapping a consumed token, got %v", err)
	}

	if err := store.ClearRefreshToken(ctx, user.ID); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}

	// A cleared session cannot be rotated back to life.
	if err := store.SwapRefreshToken(ctx, user.ID, "token-2", "token-4"); !errors.Is(err, auth.ErrTokenReuse) {
		t.Fatalf("expected ErrTokenReuse after revocation, got %v", err)
	}
}

func TestPostgresVideoRepository_ToggleLikeRoundTrip(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")
	viewer := createTestUser(t, userRepo, "viewer")
	other := createTestUser(t, userRepo, "other")

	repo := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, repo, owner.ID, "First Clip", models.CategoryGaming)

	result, err := repo.ToggleLike(ctx, video.ID, viewer.ID)
	if err != nil {
		t.Fatalf("toggle like: %v", err)
	}
	if !result.Active || result.Count != 1 {
		t.Fatalf("expected active like with count 1, got %+v", result)
	}

	result, err = repo.ToggleLike(ctx, video.ID, other.ID)
	if err != nil {
		t.Fatalf("toggle like by second user: %v", err)
	}
	if !result.Active || result.Count != 2 {
		t.Fatalf("expected count 2 after second like, got %+v", result)
	}

	result, err = repo.ToggleLike(ctx, video.ID, viewer.ID)
	if err != nil {
		t.Fatalf("toggle like back: %v", err)
	}
	if result.Active || result.Count != 1 {
		t.Fatalf("expected inactive like with count 1, got %+v", result)
	}

	if _, err := repo.ToggleLike(ctx, uuid.NewString(), viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
}

func TestPostgresVideoRepository_DetailAndSaves(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")
	viewer := createTestUser(t, userRepo, "viewer")

	repo := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, repo, owner.ID, "Detail Clip", models.CategoryTechnology)

	if _, err := repo.ToggleLike(ctx, video.ID, viewer.ID); err != nil {
		t.Fatalf("toggle like: %v", err)
	}
	if _, err := repo.ToggleSave(ctx, video.ID, viewer.ID); err != nil {
		t.Fatalf("toggle save: %v", err)
	}

	detail, err := repo.FindDetail(ctx, video.ID, viewer.ID)
	if err != nil {
		t.Fatalf("find detail: %v", err)
	}
	if detail.LikesCount != 1 || !detail.IsLiked || !detail.IsSaved {
		t.Fatalf("unexpected viewer detail: %+v", detail)
	}
	if detail.Views != 1 {
		t.Fatalf("expected detail fetch to count a view, got %d", detail.Views)
	}
	if detail.OwnerUsername != owner.Username {
		t.Fatalf("expected owner display fields, got %+v", detail)
	}

	// Anonymous fetch bumps views again and reports no viewer state.
	anon, err := repo.FindDetail(ctx, video.ID, "")
	if err != nil {
		t.Fatalf("find detail anonymously: %v", err)
	}
	if anon.Views != 2 || anon.IsLiked || anon.IsSaved {
		t.Fatalf("unexpected anonymous detail: %+v", anon)
	}

	saved, err := repo.ListSavedBy(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("list saved: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != video.ID {
		t.Fatalf("expected saved list with one entry, got %+v", saved)
	}

	if _, err := repo.FindDetail(ctx, uuid.NewString(), viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}
}

func TestPostgresVideoRepository_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")

	repo := NewPostgresVideoRepository(testPool)
	gaming := createTestVideo(t, repo, owner.ID, "Gaming Clip", models.CategoryGaming)
	createTestVideo(t, repo, owner.ID, "Edu Clip", models.CategoryEducation)

	all, total, err := repo.List(ctx, "", 1, 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 || total != 2 {
		t.Fatalf("expected 2 videos, got %d (total %d)", len(all), total)
	}

	filtered, total, err := repo.List(ctx, models.CategoryGaming, 1, 10)
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != gaming.ID || total != 1 {
		t.Fatalf("expected only the gaming clip, got %+v (total %d)", filtered, total)
	}

	mine, err := repo.ListByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 owned videos, got %d", len(mine))
	}

	if err := repo.UpdateDuration(ctx, gaming.ID, 97.25); err != nil {
		t.Fatalf("update duration: %v", err)
	}
	probed, err := repo.FindByID(ctx, gaming.ID)
	if err != nil {
		t.Fatalf("find probed video: %v", err)
	}
	if probed.Duration != 97.25 {
		t.Fatalf("expected backfilled duration, got %v", probed.Duration)
	}

	if err := repo.Delete(ctx, gaming.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if err := repo.Delete(ctx, gaming.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostgresSubscriptionRepository_Ledger(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	subscriber := createTestUser(t, userRepo, "subscriber")
	channel := createTestUser(t, userRepo, "channel")

	repo := NewPostgresSubscriptionRepository(testPool)

	state, err := repo.Subscribe(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !state.Subscribed || state.SubscribersCount != 1 {
		t.Fatalf("unexpected state after subscribe: %+v", state)
	}

	// Duplicate subscribe is a no-op: same state, counter untouched.
	state, err = repo.Subscribe(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("subscribe twice: %v", err)
	}
	if !state.Subscribed || state.SubscribersCount != 1 {
		t.Fatalf("expected unchanged state, got %+v", state)
	}

	subscribed, err := repo.IsSubscribed(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("is subscribed: %v", err)
	}
	if !subscribed {
		t.Fatal("expected subscription to be reported")
	}

	// The denormalized counter matches the record count.
	stored, err := userRepo.FindByID(ctx, channel.ID)
	if err != nil {
		t.Fatalf("find channel: %v", err)
	}
	if stored.SubscribersCount != 1 {
		t.Fatalf("expected subscribers_count 1, got %d", stored.SubscribersCount)
	}

	state, err = repo.Unsubscribe(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if state.Subscribed || state.SubscribersCount != 0 {
		t.Fatalf("unexpected state after unsubscribe: %+v", state)
	}

	// Removing an absent subscription stays a no-op.
	state, err = repo.Unsubscribe(ctx, subscriber.ID, channel.ID)
	if err != nil {
		t.Fatalf("unsubscribe twice: %v", err)
	}
	if state.SubscribersCount != 0 {
		t.Fatalf("expected count to remain 0, got %+v", state)
	}

	if _, err := repo.Subscribe(ctx, subscriber.ID, subscriber.ID); !errors.Is(err, ErrSelfSubscription) {
		t.Fatalf("expected ErrSelfSubscription, got %v", err)
	}
	if _, err := repo.Subscribe(ctx, subscriber.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown channel, got %v", err)
	}
}

func TestPostgresHistoryRepository_RecordAndList(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")
	viewer := createTestUser(t, userRepo, "viewer")

	videoRepo := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, videoRepo, owner.ID, "History Clip", models.CategoryGeneral)

	repo := NewPostgresHistoryRepository(testPool)

	if err := repo.Record(ctx, viewer.ID, video.ID); err != nil {
		t.Fatalf("record history: %v", err)
	}
	// Watching the same video again keeps a single entry.
	if err := repo.Record(ctx, viewer.ID, video.ID); err != nil {
		t.Fatalf("record history twice: %v", err)
	}
	if err := repo.Record(ctx, viewer.ID, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}

	entries, err := repo.List(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != video.ID {
		t.Fatalf("expected one deduplicated entry, got %+v", entries)
	}
	if entries[0].OwnerUsername != owner.Username {
		t.Fatalf("expected owner display fields on history entry, got %+v", entries[0])
	}
}

func TestPostgresCommentRepository_CreateListAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner")
	commenter := createTestUser(t, userRepo, "commenter")

	videoRepo := NewPostgresVideoRepository(testPool)
	video := createTestVideo(t, videoRepo, owner.ID, "Commented Clip", models.CategoryGeneral)

	repo := NewPostgresCommentRepository(testPool)

	first, err := repo.Create(ctx, models.Comment{
		ID:        uuid.NewString(),
		VideoID:   video.ID,
		OwnerID:   commenter.ID,
		Content:   "first",
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if first.OwnerUsername != commenter.Username {
		t.Fatalf("expected owner display fields, got %+v", first)
	}

	second, err := repo.Create(ctx, models.Comment{
		ID:        uuid.NewString(),
		VideoID:   video.ID,
		OwnerID:   commenter.ID,
		Content:   "second",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create second comment: %v", err)
	}

	if _, err := repo.Create(ctx, models.Comment{
		ID:        uuid.NewString(),
		VideoID:   uuid.NewString(),
		OwnerID:   commenter.ID,
		Content:   "orphan",
		CreatedAt: time.Now().UTC(),
	}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}

	comments, err := repo.ListForVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if comments[0].ID != second.ID || comments[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", comments)
	}

	if err := repo.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete comment: %v", err)
	}
	if err := repo.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE comments, watch_history, subscriptions, video_saves, video_likes, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  username,
		Password:  "password-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title, category string) models.Video {
	t.Helper()
	video := models.Video{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Title:        title,
		Category:     category,
		VideoURL:     "https://cdn.test/videos/" + title + ".mp4",
		ThumbnailURL: "",
		IsPublished:  true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
