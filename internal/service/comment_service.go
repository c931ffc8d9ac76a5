package service

import (
	"context"
	"time"

	"pressroom/internal/identity"
	"pressroom/internal/models"
	"pressroom/internal/notifications"
	"pressroom/internal/repository"
)

// CommentService manages comments on posts and replies on comments.
type CommentService struct {
	store     repository.Store
	publisher EventPublisher
	now       func() time.Time
}

func NewCommentService(store repository.Store, publisher EventPublisher) *CommentService {
	return &CommentService{
		store:     store,
		publisher: publisherOrNop(publisher),
		now:       utcNow,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, caller identity.Identity, postID uint, content string) (*models.Comment, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}

	var comment *models.Comment
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		if _, err := tx.Posts().GetByID(ctx, postID); err != nil {
			return err
		}
		if err := ensureAuthor(ctx, tx, caller); err != nil {
			return err
		}
		now := s.now()
		comment = &models.Comment{
			PostID:    postID,
			UserID:    caller.CallerID,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Comments().Create(ctx, comment)
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.publisher, notifications.Event{
		Type: notifications.CommentCreated, PostID: postID, TargetID: comment.ID, ActorID: caller.CallerID,
	})
	return comment, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, caller identity.Identity, id uint, content string) (*models.Comment, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}

	var comment *models.Comment
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		existing, err := tx.Comments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !caller.CanActFor(existing.UserID) {
			return models.NewUnauthorizedError("You can only edit your own comments")
		}
		existing.Content = content
		existing.WasEdited = true
		existing.UpdatedAt = s.now()
		comment = existing
		return tx.Comments().Update(ctx, existing)
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.publisher, notifications.Event{
		Type: notifications.CommentUpdated, PostID: comment.PostID, TargetID: comment.ID, ActorID: caller.CallerID,
	})
	return comment, nil
}

// DeleteComment removes a comment with its replies and every reaction on
// either.
func (s *CommentService) DeleteComment(ctx context.Context, caller identity.Identity, id uint) (repository.DeleteReport, error) {
	if err := caller.Require(); err != nil {
		return repository.DeleteReport{}, err
	}

	var report repository.DeleteReport
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		existing, err := tx.Comments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !caller.CanActFor(existing.UserID) {
			return models.NewUnauthorizedError("You can only delete your own comments")
		}
		report, err = tx.Subtrees().DeleteSubtree(ctx, repository.NodeComment, id)
		return err
	})
	if err != nil {
		return repository.DeleteReport{}, err
	}

	emit(ctx, s.publisher, notifications.Event{
		Type: notifications.CommentDeleted, PostID: report.PostID, TargetID: id, ActorID: caller.CallerID,
	})
	return report, nil
}

func (s *CommentService) CreateReply(ctx context.Context, caller identity.Identity, commentID uint, content string) (*models.Reply, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}

	var (
		reply  *models.Reply
		postID uint
	)
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		parent, err := tx.Comments().GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		postID = parent.PostID
		if err := ensureAuthor(ctx, tx, caller); err != nil {
			return err
		}
		now := s.now()
		reply = &models.Reply{
			CommentID: commentID,
			UserID:    caller.CallerID,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Replies().Create(ctx, reply)
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.publisher, notifications.Event{
		Type: notifications.ReplyCreated, PostID: postID, TargetID: reply.ID, ActorID: caller.CallerID,
	})
	return reply, nil
}

func (s *CommentService) UpdateReply(ctx context.Context, caller identity.Identity, id uint, content string) (*models.Reply, error) {
	if err := caller.Require(); err != nil {
		return nil, err
	}

	var (
		reply  *models.Reply
		postID uint
	)
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		existing, err := tx.Replies().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !caller.CanActFor(existing.UserID) {
			return models.NewUnauthorizedError("You can only edit your own replies")
		}
		existing.Content = content
		existing.WasEdited = true
		existing.UpdatedAt = s.now()
		reply = existing
		if err := tx.Replies().Update(ctx, existing); err != nil {
			return err
		}
		postID, err = postOfComment(ctx, tx, existing.CommentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	emit(ctx, s.publisher, notifications.Event{
		Type: notifications.ReplyUpdated, PostID: postID, TargetID: reply.ID, ActorID: caller.CallerID,
	})
	return reply, nil
}

// DeleteReply removes a reply and its reactions.
func (s *CommentService) DeleteReply(ctx context.Context, caller identity.Identity, id uint) (repository.DeleteReport, error) {
	if err := caller.Require(); err != nil {
		return repository.DeleteReport{}, err
	}

	var report repository.DeleteReport
	err := s.store.Atomic(ctx, func(tx repository.Store) error {
		existing, err := tx.Replies().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !caller.CanActFor(existing.UserID) {
			return models.NewUnauthorizedError("You can only delete your own replies")
		}
		report, err = tx.Subtrees().DeleteSubtree(ctx, repository.NodeReply, id)
		return err
	})
	if err != nil {
		return repository.DeleteReport{}, err
	}

	emit(ctx, s.publisher, notifications.Event{
		Type: notifications.ReplyDeleted, PostID: report.PostID, TargetID: id, ActorID: caller.CallerID,
	})
	return report, nil
}

// ListByPost returns the post's comments newest first, each with its
// author and its replies oldest first.
func (s *CommentService) ListByPost(ctx context.Context, postID uint) ([]*models.CommentThread, error) {
	comments, err := s.store.Comments().ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return []*models.CommentThread{}, nil
	}

	ids := make([]uint, len(comments))
	for i, c := range comments {
		ids[i] = c.ID
	}
	replies, err := s.store.Replies().ListByComments(ctx, ids)
	if err != nil {
		return nil, err
	}

	authorIDs := make([]string, 0, len(comments)+len(replies))
	for _, c := range comments {
		authorIDs = append(authorIDs, c.UserID)
	}
	for _, r := range replies {
		authorIDs = append(authorIDs, r.UserID)
	}
	authors, err := s.authors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	byComment := make(map[uint][]*models.ReplyView, len(comments))
	for _, r := range replies {
		byComment[r.CommentID] = append(byComment[r.CommentID], &models.ReplyView{
			Reply:  r,
			Author: models.AuthorOf(r.UserID, authors[r.UserID]),
		})
	}

	threads := make([]*models.CommentThread, len(comments))
	for i, c := range comments {
		rs := byComment[c.ID]
		if rs == nil {
			rs = []*models.ReplyView{}
		}
		threads[i] = &models.CommentThread{
			Comment: c,
			Author:  models.AuthorOf(c.UserID, authors[c.UserID]),
			Replies: rs,
		}
	}
	return threads, nil
}

// ListReplies returns a comment's replies oldest first.
func (s *CommentService) ListReplies(ctx context.Context, commentID uint) ([]*models.ReplyView, error) {
	if _, err := s.store.Comments().GetByID(ctx, commentID); err != nil {
		return nil, err
	}
	replies, err := s.store.Replies().ListByComment(ctx, commentID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(replies))
	for i, r := range replies {
		ids[i] = r.UserID
	}
	authors, err := s.authors(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*models.ReplyView, len(replies))
	for i, r := range replies {
		out[i] = &models.ReplyView{Reply: r, Author: models.AuthorOf(r.UserID, authors[r.UserID])}
	}
	return out, nil
}

// authors resolves display profiles in one query.
func (s *CommentService) authors(ctx context.Context, externalIDs []string) (map[string]*models.User, error) {
	seen := make(map[string]struct{}, len(externalIDs))
	unique := make([]string, 0, len(externalIDs))
	for _, id := range externalIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	users, err := s.store.Users().ListByExternalIDs(ctx, unique)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*models.User, len(users))
	for _, u := range users {
		out[u.ExternalID] = u
	}
	return out, nil
}

func postOfComment(ctx context.Context, tx repository.Store, commentID uint) (uint, error) {
	parent, err := tx.Comments().GetByID(ctx, commentID)
	if err != nil {
		return 0, err
	}
	return parent.PostID, nil
}
