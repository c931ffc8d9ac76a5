package repository

import (
	"context"
	"fmt"
	"strings"

	"pressroom/internal/cache"
	"pressroom/internal/models"

	"gorm.io/gorm"
)

// ThreadCounts is the number of comments and replies under one post.
type ThreadCounts struct {
	Comments int64
	Replies  int64
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetBySlug(ctx context.Context, slug string) (*models.Post, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	ListPublished(ctx context.Context) ([]*models.Post, error)
	ListByUser(ctx context.Context, userID string, publishedOnly bool) ([]*models.Post, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post, staleSlugs ...string) error
	IncrementViewCount(ctx context.Context, id uint) error
	ThreadCounts(ctx context.Context, postIDs []uint) (map[uint]ThreadCounts, error)
}

type postRepository struct {
	db          *gorm.DB
	afterCommit func(func())
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, afterCommit: runNow}
}

func (r *postRepository) invalidate(ctx context.Context, slugs ...string) {
	r.afterCommit(func() { cache.InvalidatePost(context.WithoutCancel(ctx), slugs...) })
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: post slug %q", ErrDuplicate, post.Slug)
		}
		return err
	}
	r.invalidate(ctx, post.Slug)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, notFound(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, "post", cache.PostSlugKey(slug), &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).Where("slug = ?", slug).First(&post).Error
	})
	if err != nil {
		return nil, notFound(err, "Post", slug)
	}
	return &post, nil
}

// ListByIDs returns the posts with the given ids in the order of ids.
// Missing ids are skipped.
func (r *postRepository) ListByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []*models.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	posts := make([]*models.Post, 0, len(found))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := r.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&posts).Error
	return posts, err
}

func (r *postRepository) ListPublished(ctx context.Context) ([]*models.Post, error) {
	var posts []*models.Post
	err := cache.Aside(ctx, "posts_published", cache.PublishedPostsKey(), &posts, cache.PublishedListTTL, func() error {
		return r.db.WithContext(ctx).
			Where("is_published = ?", true).
			Order("created_at desc").
			Order("id desc").
			Find(&posts).Error
	})
	return posts, err
}

func (r *postRepository) ListByUser(ctx context.Context, userID string, publishedOnly bool) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if publishedOnly {
		q = q.Where("is_published = ?", true)
	}
	var posts []*models.Post
	err := q.Order("created_at desc").Order("id desc").Find(&posts).Error
	return posts, err
}

// Search matches published posts by title or description, case-insensitively.
func (r *postRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("is_published = ?", true).
		Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like).
		Order("created_at desc").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *models.Post, staleSlugs ...string) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: post slug %q", ErrDuplicate, post.Slug)
		}
		return err
	}
	r.invalidate(ctx, append(staleSlugs, post.Slug)...)
	return nil
}

func (r *postRepository) IncrementViewCount(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

func (r *postRepository) ThreadCounts(ctx context.Context, postIDs []uint) (map[uint]ThreadCounts, error) {
	out := make(map[uint]ThreadCounts, len(postIDs))
	if len(postIDs) == 0 {
		return out, nil
	}

	type row struct {
		PostID uint
		Count  int64
	}

	var comments []row
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&comments).Error; err != nil {
		return nil, err
	}

	var replies []row
	if err := r.db.WithContext(ctx).Model(&models.Reply{}).
		Select("comments.post_id AS post_id, COUNT(replies.id) AS count").
		Joins("JOIN comments ON comments.id = replies.comment_id").
		Where("comments.post_id IN ?", postIDs).
		Group("comments.post_id").
		Scan(&replies).Error; err != nil {
		return nil, err
	}

	for _, c := range comments {
		tc := out[c.PostID]
		tc.Comments = c.Count
		out[c.PostID] = tc
	}
	for _, rp := range replies {
		tc := out[rp.PostID]
		tc.Replies = rp.Count
		out[rp.PostID] = tc
	}
	return out, nil
}
