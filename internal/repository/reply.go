package repository

import (
	"context"

	"pressroom/internal/models"

	"gorm.io/gorm"
)

// ReplyRepository defines interface for reply operations
type ReplyRepository interface {
	Create(ctx context.Context, reply *models.Reply) error
	GetByID(ctx context.Context, id uint) (*models.Reply, error)
	ListByComment(ctx context.Context, commentID uint) ([]*models.Reply, error)
	ListByComments(ctx context.Context, commentIDs []uint) ([]*models.Reply, error)
	Update(ctx context.Context, reply *models.Reply) error
}

type replyRepository struct {
	db *gorm.DB
}

// NewReplyRepository creates a new ReplyRepository
func NewReplyRepository(db *gorm.DB) ReplyRepository {
	return &replyRepository{db: db}
}

func (r *replyRepository) Create(ctx context.Context, reply *models.Reply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

func (r *replyRepository) GetByID(ctx context.Context, id uint) (*models.Reply, error) {
	var reply models.Reply
	if err := r.db.WithContext(ctx).First(&reply, id).Error; err != nil {
		return nil, notFound(err, "Reply", id)
	}
	return &reply, nil
}

// ListByComment returns the comment's replies oldest first.
func (r *replyRepository) ListByComment(ctx context.Context, commentID uint) ([]*models.Reply, error) {
	var replies []*models.Reply
	err := r.db.WithContext(ctx).
		Where("comment_id = ?", commentID).
		Order("created_at asc").
		Order("id asc").
		Find(&replies).Error
	return replies, err
}

// ListByComments returns the replies of several comments, each comment's
// replies oldest first.
func (r *replyRepository) ListByComments(ctx context.Context, commentIDs []uint) ([]*models.Reply, error) {
	if len(commentIDs) == 0 {
		return nil, nil
	}
	var replies []*models.Reply
	err := r.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Order("created_at asc").
		Order("id asc").
		Find(&replies).Error
	return replies, err
}

func (r *replyRepository) Update(ctx context.Context, reply *models.Reply) error {
	return r.db.WithContext(ctx).Save(reply).Error
}
