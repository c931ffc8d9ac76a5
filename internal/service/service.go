// Package service holds the business rules: authorization, referential
// checks and transactional writes over the repositories.
package service

import (
	"context"
	"log/slog"
	"time"

	"pressroom/internal/identity"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/notifications"
	"pressroom/internal/repository"
)

// EventPublisher receives thread change events once a write has committed.
type EventPublisher interface {
	Publish(ctx context.Context, ev notifications.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, notifications.Event) error { return nil }

// publisherOrNop maps a nil publisher to one that discards events.
func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}

// emit publishes ev. Delivery failures are logged; the write they
// describe has already committed.
func emit(ctx context.Context, p EventPublisher, ev notifications.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := p.Publish(ctx, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "feed publish failed",
			slog.String("event", string(ev.Type)),
			slog.Uint64("post_id", uint64(ev.PostID)),
			slog.String("error", err.Error()),
		)
	}
}

func utcNow() time.Time { return time.Now().UTC() }

// ensureAuthor creates the caller's profile from its token claims on first
// write. Existing profiles are left untouched.
func ensureAuthor(ctx context.Context, tx repository.Store, caller identity.Identity) error {
	name := caller.Name
	if name == "" {
		name = caller.CallerID
	}
	now := utcNow()
	_, err := tx.Users().EnsureExists(ctx, &models.User{
		ExternalID: caller.CallerID,
		Name:       name,
		Email:      caller.Email,
		Avatar:     caller.Avatar,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	return err
}
