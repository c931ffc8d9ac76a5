package repository

import (
	"context"
	"errors"

	"pressroom/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReactionRepository defines the reaction ledger's storage.
type ReactionRepository interface {
	// Find returns the row for key, or nil when there is none.
	Find(ctx context.Context, key models.ReactionKey) (*models.Reaction, error)
	// Insert adds reaction unless its key already exists and reports
	// whether a row was written.
	Insert(ctx context.Context, reaction *models.Reaction) (bool, error)
	Delete(ctx context.Context, id uint) error
	ListByTarget(ctx context.Context, targetType models.TargetType, targetID uint) ([]*models.Reaction, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new ReactionRepository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) Find(ctx context.Context, key models.ReactionKey) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ? AND user_id = ? AND emoji = ?",
			key.TargetType, key.TargetID, key.UserID, key.Emoji).
		Take(&reaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reaction, nil
}

func (r *reactionRepository) Insert(ctx context.Context, reaction *models.Reaction) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "target_type"}, {Name: "target_id"}, {Name: "user_id"}, {Name: "emoji"}},
			DoNothing: true,
		}).
		Create(reaction)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *reactionRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Reaction{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Reaction", id)
	}
	return nil
}

// ListByTarget returns a target's reactions in the order they were added.
func (r *reactionRepository) ListByTarget(ctx context.Context, targetType models.TargetType, targetID uint) ([]*models.Reaction, error) {
	var reactions []*models.Reaction
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at asc").
		Order("id asc").
		Find(&reactions).Error
	return reactions, err
}
