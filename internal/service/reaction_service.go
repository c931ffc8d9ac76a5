package service

import (
	"context"

	"pressroom/internal/featureflags"
	"pressroom/internal/identity"
	"pressroom/internal/models"
	"pressroom/internal/notifications"
	"pressroom/internal/observability"
	"pressroom/internal/repository"
)

// ReactionService is the per (target, user, emoji) reaction ledger.
type ReactionService struct {
	store     repository.Store
	publisher EventPublisher
	flags     *featureflags.Manager
}

func NewReactionService(store repository.Store, publisher EventPublisher, flags *featureflags.Manager) *ReactionService {
	return &ReactionService{
		store:     store,
		publisher: publisherOrNop(publisher),
		flags:     flags,
	}
}

// Toggle removes the caller's emoji on the target if present and adds it
// otherwise.
func (s *ReactionService) Toggle(ctx context.Context, caller identity.Identity, targetType models.TargetType, targetID uint, emoji string) (models.ToggleAction, error) {
	if err := caller.Require(); err != nil {
		return "", err
	}
	if _, err := models.ParseTargetType(string(targetType)); err != nil {
		return "", err
	}
	if emoji == "" {
		return "", models.NewValidationError("Emoji is required")
	}
	if s.flags.Enabled(featureflags.StrictEmojiPalette, caller.CallerID) && !models.InPalette(emoji) {
		return "", models.NewValidationError("Emoji is not in the reaction palette")
	}

	key := models.ReactionKey{TargetType: targetType, TargetID: targetID, UserID: caller.CallerID, Emoji: emoji}
	var (
		action models.ToggleAction
		postID uint
	)
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		var err error
		postID, err = targetPost(ctx, tx, targetType, targetID)
		if err != nil {
			return err
		}

		existing, err := tx.Reactions().Find(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			action = models.ReactionRemoved
			return tx.Reactions().Delete(ctx, existing.ID)
		}
		if err := ensureAuthor(ctx, tx, caller); err != nil {
			return err
		}

		// A concurrent toggle may insert the same key first; the row
		// exists either way.
		action = models.ReactionAdded
		_, err = tx.Reactions().Insert(ctx, &models.Reaction{
			TargetType: targetType,
			TargetID:   targetID,
			UserID:     caller.CallerID,
			Emoji:      emoji,
			CreatedAt:  utcNow(),
		})
		return err
	})
	if err != nil {
		return "", err
	}

	observability.ReactionToggles.WithLabelValues(string(targetType), string(action)).Inc()
	emit(ctx, s.publisher, notifications.Event{
		Type: notifications.ReactionToggled, PostID: postID, TargetID: targetID, ActorID: caller.CallerID,
	})
	return action, nil
}

// GetByTarget aggregates the target's reactions per emoji. Groups appear in
// the order of their first reaction and list users in reaction order.
func (s *ReactionService) GetByTarget(ctx context.Context, targetType models.TargetType, targetID uint) ([]models.ReactionGroup, error) {
	if _, err := models.ParseTargetType(string(targetType)); err != nil {
		return nil, err
	}
	reactions, err := s.store.Reactions().ListByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, err
	}

	groups := []models.ReactionGroup{}
	index := make(map[string]int)
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, models.ReactionGroup{Emoji: r.Emoji, UserIDs: []string{}})
		}
		groups[i].Count++
		groups[i].UserIDs = append(groups[i].UserIDs, r.UserID)
	}
	return groups, nil
}

// Palette returns the suggested reaction emoji.
func (s *ReactionService) Palette() []string {
	return append([]string(nil), models.EmojiPalette...)
}

// targetPost checks that the reaction target exists and returns the post
// whose thread it belongs to.
func targetPost(ctx context.Context, tx repository.Store, targetType models.TargetType, targetID uint) (uint, error) {
	switch targetType {
	case models.TargetComment:
		c, err := tx.Comments().GetByID(ctx, targetID)
		if err != nil {
			return 0, err
		}
		return c.PostID, nil
	case models.TargetReply:
		r, err := tx.Replies().GetByID(ctx, targetID)
		if err != nil {
			return 0, err
		}
		return postOfComment(ctx, tx, r.CommentID)
	}
	return 0, models.NewValidationError("unknown reaction target type")
}
