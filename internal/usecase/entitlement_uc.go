package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"blog-subscription-platform/internal/domain"
	"blog-subscription-platform/internal/domain/model"
	"blog-subscription-platform/internal/domain/ports/repository"
	"blog-subscription-platform/internal/infra/logging"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase guards the subscriber-only features. Today that is
// one pinned post per subscriber.
type EntitlementUseCase interface {
	// Pin sets the user's pinned post. The post must exist, be published,
	// be authored by the user, and the user must hold an active
	// subscription. Pinning again replaces the previous pin.
	Pin(ctx context.Context, userID, postID string) (*model.PinnedPost, error)
	// Unpin removes the user's pin. ErrNoPinnedPost when there is none.
	Unpin(ctx context.Context, userID string) error
	// Enforce removes a pin whose owner no longer holds an active
	// subscription. Reactive guard for jobs and admin tooling.
	Enforce(ctx context.Context, userID string) (removed bool, err error)
}

type entitlementUC struct {
	pins    repository.PinnedPostRepository
	posts   repository.PostRepository
	subs    repository.SubscriptionRepository
	history repository.SubscriptionHistoryRepository
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewEntitlementUseCase(
	pins repository.PinnedPostRepository,
	posts repository.PostRepository,
	subs repository.SubscriptionRepository,
	history repository.SubscriptionHistoryRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *entitlementUC {
	return &entitlementUC{
		pins:    pins,
		posts:   posts,
		subs:    subs,
		history: history,
		tm:      tm,
		log:     logger,
	}
}

func (u *entitlementUC) Pin(ctx context.Context, userID, postID string) (*model.PinnedPost, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Pin")()

	post, err := u.posts.FindByID(ctx, repository.NoTX, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, domain.ErrNotPostAuthor
	}
	if !post.IsPublished() {
		return nil, domain.ErrPostNotPublished
	}

	var pin *model.PinnedPost
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindActiveByUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNoActiveSubscription
			}
			return err
		}
		if !sub.IsActive() {
			return domain.ErrNoActiveSubscription
		}

		now := time.Now()
		pin = &model.PinnedPost{
			ID:        uuid.NewString(),
			UserID:    userID,
			PostID:    postID,
			PinnedAt:  now,
			UpdatedAt: now,
		}
		if err := u.pins.Upsert(ctx, tx, pin); err != nil {
			return err
		}
		return u.history.Save(ctx, tx, &model.SubscriptionHistory{
			ID:             ulid.Make().String(),
			SubscriptionID: sub.ID,
			Action:         model.HistoryActionPostPinned,
			Description:    fmt.Sprintf("pinned post %q", post.Title),
			Metadata:       map[string]any{"post_id": post.ID, "post_slug": post.Slug},
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, err
	}
	return pin, nil
}

func (u *entitlementUC) Unpin(ctx context.Context, userID string) error {
	defer logging.TraceDuration(u.log, "EntitlementUC.Unpin")()

	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		deleted, err := u.pins.DeleteByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if !deleted {
			return domain.ErrNoPinnedPost
		}
		sub, err := u.subs.FindActiveByUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		return u.history.Save(ctx, tx, &model.SubscriptionHistory{
			ID:             ulid.Make().String(),
			SubscriptionID: sub.ID,
			Action:         model.HistoryActionPostUnpinned,
			Description:    "pin removed by user",
			CreatedAt:      time.Now(),
		})
	})
}

func (u *entitlementUC) Enforce(ctx context.Context, userID string) (bool, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Enforce")()

	sub, err := u.subs.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return false, err
	}
	if sub != nil && sub.IsActive() {
		return false, nil
	}
	removed, err := u.pins.DeleteByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return false, err
	}
	if removed {
		u.log.Info().Str("user_id", userID).Msg("removed pin without active subscription")
	}
	return removed, nil
}
