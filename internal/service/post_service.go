package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pressroom/internal/featureflags"
	"pressroom/internal/identity"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/notifications"
	"pressroom/internal/repository"
	"pressroom/internal/richtext"
	"pressroom/internal/validation"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// PostIndex is a full-text index over published posts.
type PostIndex interface {
	Healthy() bool
	IndexPost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uint) error
	SearchPostIDs(ctx context.Context, query string, limit, offset int) ([]uint, error)
}

type PostService struct {
	store     repository.Store
	publisher EventPublisher
	index     PostIndex
	flags     *featureflags.Manager
}

type CreatePostInput struct {
	Title       string
	Description string
	Content     models.RichText
	Tags        []string
	Slug        string
	IsPublished bool
	FollowupURL string
}

// UpdatePostInput is a partial update; nil fields are left unchanged.
type UpdatePostInput struct {
	Title       *string
	Description *string
	Content     models.RichText
	Tags        *[]string
	Slug        *string
	IsPublished *bool
	FollowupURL *string
}

// NewPostService creates a PostService. index and flags may be nil.
func NewPostService(store repository.Store, publisher EventPublisher, index PostIndex, flags *featureflags.Manager) *PostService {
	return &PostService{
		store:     store,
		publisher: publisherOrNop(publisher),
		index:     index,
		flags:     flags,
	}
}

func (s *PostService) Create(ctx context.Context, caller identity.Identity, in CreatePostInput) (*models.Post, error) {
	if err := caller.RequireAdmin("create posts"); err != nil {
		return nil, err
	}
	if err := validation.ValidatePostSlug(in.Slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	now := utcNow()
	post := &models.Post{
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Tags:        in.Tags,
		Slug:        in.Slug,
		IsPublished: in.IsPublished,
		FollowupURL: in.FollowupURL,
		UserID:      caller.CallerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		return tx.Posts().Create(ctx, post)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, models.NewValidationError("Slug is already in use")
	}
	if err != nil {
		return nil, err
	}

	s.syncIndex(ctx, post)
	return withReadingTime(post), nil
}

func (s *PostService) Update(ctx context.Context, caller identity.Identity, id uint, in UpdatePostInput) (*models.Post, error) {
	var post *models.Post
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		existing, err := tx.Posts().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := caller.RequireAdmin("update posts"); err != nil {
			return err
		}

		oldSlug := existing.Slug
		if in.Slug != nil && *in.Slug != oldSlug {
			if err := validation.ValidatePostSlug(*in.Slug); err != nil {
				return models.NewValidationError(err.Error())
			}
			existing.Slug = *in.Slug
		}
		if in.Title != nil {
			existing.Title = *in.Title
		}
		if in.Description != nil {
			existing.Description = *in.Description
		}
		if in.Content != nil {
			existing.Content = in.Content
		}
		if in.Tags != nil {
			existing.Tags = *in.Tags
		}
		if in.IsPublished != nil {
			existing.IsPublished = *in.IsPublished
		}
		if in.FollowupURL != nil {
			existing.FollowupURL = *in.FollowupURL
		}
		existing.UpdatedAt = utcNow()

		post = existing
		return tx.Posts().Update(ctx, existing, oldSlug)
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, models.NewValidationError("Slug is already in use")
	}
	if err != nil {
		return nil, err
	}

	s.syncIndex(ctx, post)
	emit(ctx, s.publisher, notifications.Event{Type: notifications.PostUpdated, PostID: post.ID, ActorID: caller.CallerID})
	return withReadingTime(post), nil
}

// Remove deletes a post with its comments, replies and reactions.
func (s *PostService) Remove(ctx context.Context, caller identity.Identity, id uint) (repository.DeleteReport, error) {
	if err := caller.RequireAdmin("delete posts"); err != nil {
		return repository.DeleteReport{}, err
	}

	var report repository.DeleteReport
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		var err error
		report, err = tx.Subtrees().DeleteSubtree(ctx, repository.NodePost, id)
		return err
	})
	if err != nil {
		return repository.DeleteReport{}, err
	}

	if s.index != nil {
		if err := s.index.DeletePost(ctx, id); err != nil {
			logIndexError(ctx, "delete", id, err)
		}
	}
	emit(ctx, s.publisher, notifications.Event{Type: notifications.PostDeleted, PostID: id, ActorID: caller.CallerID})
	return report, nil
}

// IncrementViewCount counts one view of the post.
func (s *PostService) IncrementViewCount(ctx context.Context, id uint) error {
	return s.store.Posts().IncrementViewCount(ctx, id)
}

// ListPublished returns published posts, newest first.
func (s *PostService) ListPublished(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.store.Posts().ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	return withReadingTimes(posts), nil
}

// List returns every post including drafts. Admin only.
func (s *PostService) List(ctx context.Context, caller identity.Identity) ([]*models.Post, error) {
	if err := caller.RequireAdmin("list drafts"); err != nil {
		return nil, err
	}
	posts, err := s.store.Posts().List(ctx)
	if err != nil {
		return nil, err
	}
	return withReadingTimes(posts), nil
}

func (s *PostService) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return withReadingTime(post), nil
}

// GetBySlug returns the post at slug. Drafts are only visible to admins.
func (s *PostService) GetBySlug(ctx context.Context, caller identity.Identity, slug string) (*models.Post, error) {
	post, err := s.store.Posts().GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished && !caller.IsAdmin() {
		return nil, models.NewNotFoundError("Post", slug)
	}
	return withReadingTime(post), nil
}

// GetBySlugWithAuthor is GetBySlug with the owner's display fields.
func (s *PostService) GetBySlugWithAuthor(ctx context.Context, caller identity.Identity, slug string) (*models.PostWithAuthor, error) {
	post, err := s.GetBySlug(ctx, caller, slug)
	if err != nil {
		return nil, err
	}
	owner, err := s.store.Users().GetByExternalID(ctx, post.UserID)
	if err != nil && !models.IsNotFound(err) {
		return nil, err
	}
	return &models.PostWithAuthor{Post: post, Author: models.AuthorOf(post.UserID, owner)}, nil
}

// ListWithStats returns every post with its comment and reply counts. Admin only.
func (s *PostService) ListWithStats(ctx context.Context, caller identity.Identity) ([]*models.PostStats, error) {
	if err := caller.RequireAdmin("view post stats"); err != nil {
		return nil, err
	}
	posts, err := s.store.Posts().List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	counts, err := s.store.Posts().ThreadCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*models.PostStats, len(posts))
	for i, p := range posts {
		c := counts[p.ID]
		out[i] = &models.PostStats{Post: withReadingTime(p), CommentCount: c.Comments, ReplyCount: c.Replies}
	}
	return out, nil
}

// ListByAuthor returns the posts owned by userID, newest first.
func (s *PostService) ListByAuthor(ctx context.Context, userID string, publishedOnly bool) ([]*models.Post, error) {
	posts, err := s.store.Posts().ListByUser(ctx, userID, publishedOnly)
	if err != nil {
		return nil, err
	}
	return withReadingTimes(posts), nil
}

// Search matches published posts against query. Meilisearch answers when
// enabled and healthy; the database answers otherwise.
func (s *PostService) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	if s.useIndex() {
		ids, err := s.index.SearchPostIDs(ctx, query, limit, offset)
		if err == nil {
			posts, err := s.store.Posts().ListByIDs(ctx, ids)
			if err != nil {
				return nil, err
			}
			return withReadingTimes(publishedOnly(posts)), nil
		}
		middleware.Logger.WarnContext(ctx, "search index failed, falling back to database", slog.String("error", err.Error()))
	}

	posts, err := s.store.Posts().Search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return withReadingTimes(posts), nil
}

func (s *PostService) useIndex() bool {
	return s.index != nil && s.index.Healthy() && s.flags.Enabled(featureflags.SearchMeili, "")
}

// syncIndex makes the index reflect post's publish state.
func (s *PostService) syncIndex(ctx context.Context, post *models.Post) {
	if s.index == nil {
		return
	}
	if post.IsPublished {
		if err := s.index.IndexPost(ctx, post); err != nil {
			logIndexError(ctx, "index", post.ID, err)
		}
		return
	}
	if err := s.index.DeletePost(ctx, post.ID); err != nil {
		logIndexError(ctx, "delete", post.ID, err)
	}
}

func logIndexError(ctx context.Context, op string, id uint, err error) {
	middleware.Logger.WarnContext(ctx, "search index update failed",
		slog.String("op", op),
		slog.Uint64("post_id", uint64(id)),
		slog.String("error", err.Error()),
	)
}

func publishedOnly(posts []*models.Post) []*models.Post {
	out := posts[:0]
	for _, p := range posts {
		if p.IsPublished {
			out = append(out, p)
		}
	}
	return out
}

func withReadingTime(p *models.Post) *models.Post {
	p.ReadingMinutes = richtext.ReadingMinutes(p.Content)
	return p
}

func withReadingTimes(posts []*models.Post) []*models.Post {
	for _, p := range posts {
		withReadingTime(p)
	}
	return posts
}
