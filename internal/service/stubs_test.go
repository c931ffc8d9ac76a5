package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"pressroom/internal/models"
	"pressroom/internal/notifications"
	"pressroom/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeStub is a repository.Store over stub repositories. Atomic runs fn
// inline.
type storeStub struct {
	users     *userRepoStub
	posts     *postRepoStub
	comments  *commentRepoStub
	replies   *replyRepoStub
	reactions *reactionRepoStub
	subtrees  *subtreeRepoStub
}

func (s *storeStub) Users() repository.UserRepository         { return s.users }
func (s *storeStub) Posts() repository.PostRepository         { return s.posts }
func (s *storeStub) Comments() repository.CommentRepository   { return s.comments }
func (s *storeStub) Replies() repository.ReplyRepository      { return s.replies }
func (s *storeStub) Reactions() repository.ReactionRepository { return s.reactions }
func (s *storeStub) Subtrees() repository.SubtreeRepository   { return s.subtrees }
func (s *storeStub) Atomic(_ context.Context, fn func(tx repository.Store) error) error {
	return fn(s)
}

func noopStore() *storeStub {
	return &storeStub{
		users:     noopUserRepo(),
		posts:     noopPostRepo(),
		comments:  noopCommentRepo(),
		replies:   noopReplyRepo(),
		reactions: noopReactionRepo(),
		subtrees:  noopSubtreeRepo(),
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	createFn            func(context.Context, *models.User) error
	ensureExistsFn      func(context.Context, *models.User) (bool, error)
	getByExternalIDFn   func(context.Context, string) (*models.User, error)
	listByExternalIDsFn func(context.Context, []string) ([]*models.User, error)
	listFn              func(context.Context) ([]*models.User, error)
	patchFn             func(context.Context, *models.User, map[string]interface{}) error
}

func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) EnsureExists(ctx context.Context, u *models.User) (bool, error) {
	return s.ensureExistsFn(ctx, u)
}
func (s *userRepoStub) GetByExternalID(ctx context.Context, id string) (*models.User, error) {
	return s.getByExternalIDFn(ctx, id)
}
func (s *userRepoStub) ListByExternalIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	return s.listByExternalIDsFn(ctx, ids)
}
func (s *userRepoStub) List(ctx context.Context) ([]*models.User, error) { return s.listFn(ctx) }
func (s *userRepoStub) Patch(ctx context.Context, u *models.User, fields map[string]interface{}) error {
	return s.patchFn(ctx, u, fields)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		createFn:       func(_ context.Context, _ *models.User) error { return nil },
		ensureExistsFn: func(_ context.Context, _ *models.User) (bool, error) { return true, nil },
		getByExternalIDFn: func(_ context.Context, id string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		},
		listByExternalIDsFn: func(_ context.Context, _ []string) ([]*models.User, error) { return nil, nil },
		listFn:              func(_ context.Context) ([]*models.User, error) { return nil, nil },
		patchFn:             func(_ context.Context, _ *models.User, _ map[string]interface{}) error { return nil },
	}
}

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn             func(context.Context, *models.Post) error
	getByIDFn            func(context.Context, uint) (*models.Post, error)
	getBySlugFn          func(context.Context, string) (*models.Post, error)
	listByIDsFn          func(context.Context, []uint) ([]*models.Post, error)
	listFn               func(context.Context) ([]*models.Post, error)
	listPublishedFn      func(context.Context) ([]*models.Post, error)
	listByUserFn         func(context.Context, string, bool) ([]*models.Post, error)
	searchFn             func(context.Context, string, int, int) ([]*models.Post, error)
	updateFn             func(context.Context, *models.Post, ...string) error
	incrementViewCountFn func(context.Context, uint) error
	threadCountsFn       func(context.Context, []uint) (map[uint]repository.ThreadCounts, error)
}

func (s *postRepoStub) Create(ctx context.Context, p *models.Post) error { return s.createFn(ctx, p) }
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *postRepoStub) ListByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	return s.listByIDsFn(ctx, ids)
}
func (s *postRepoStub) List(ctx context.Context) ([]*models.Post, error) { return s.listFn(ctx) }
func (s *postRepoStub) ListPublished(ctx context.Context) ([]*models.Post, error) {
	return s.listPublishedFn(ctx)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID string, publishedOnly bool) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID, publishedOnly)
}
func (s *postRepoStub) Search(ctx context.Context, q string, limit, offset int) ([]*models.Post, error) {
	return s.searchFn(ctx, q, limit, offset)
}
func (s *postRepoStub) Update(ctx context.Context, p *models.Post, stale ...string) error {
	return s.updateFn(ctx, p, stale...)
}
func (s *postRepoStub) IncrementViewCount(ctx context.Context, id uint) error {
	return s.incrementViewCountFn(ctx, id)
}
func (s *postRepoStub) ThreadCounts(ctx context.Context, ids []uint) (map[uint]repository.ThreadCounts, error) {
	return s.threadCountsFn(ctx, ids)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn: func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, IsPublished: true}, nil
		},
		getBySlugFn: func(_ context.Context, slug string) (*models.Post, error) {
			return nil, models.NewNotFoundError("Post", slug)
		},
		listByIDsFn:          func(_ context.Context, _ []uint) ([]*models.Post, error) { return nil, nil },
		listFn:               func(_ context.Context) ([]*models.Post, error) { return nil, nil },
		listPublishedFn:      func(_ context.Context) ([]*models.Post, error) { return nil, nil },
		listByUserFn:         func(_ context.Context, _ string, _ bool) ([]*models.Post, error) { return nil, nil },
		searchFn:             func(_ context.Context, _ string, _, _ int) ([]*models.Post, error) { return nil, nil },
		updateFn:             func(_ context.Context, _ *models.Post, _ ...string) error { return nil },
		incrementViewCountFn: func(_ context.Context, _ uint) error { return nil },
		threadCountsFn: func(_ context.Context, _ []uint) (map[uint]repository.ThreadCounts, error) {
			return map[uint]repository.ThreadCounts{}, nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn     func(context.Context, *models.Comment) error
	getByIDFn    func(context.Context, uint) (*models.Comment, error)
	listByPostFn func(context.Context, uint) ([]*models.Comment, error)
	updateFn     func(context.Context, *models.Comment) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) Update(ctx context.Context, comment *models.Comment) error {
	return s.updateFn(ctx, comment)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn: func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, PostID: 1}, nil
		},
		listByPostFn: func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		updateFn:     func(_ context.Context, _ *models.Comment) error { return nil },
	}
}

// replyRepoStub is a stub for repository.ReplyRepository.
type replyRepoStub struct {
	createFn         func(context.Context, *models.Reply) error
	getByIDFn        func(context.Context, uint) (*models.Reply, error)
	listByCommentFn  func(context.Context, uint) ([]*models.Reply, error)
	listByCommentsFn func(context.Context, []uint) ([]*models.Reply, error)
	updateFn         func(context.Context, *models.Reply) error
}

func (s *replyRepoStub) Create(ctx context.Context, r *models.Reply) error { return s.createFn(ctx, r) }
func (s *replyRepoStub) GetByID(ctx context.Context, id uint) (*models.Reply, error) {
	return s.getByIDFn(ctx, id)
}
func (s *replyRepoStub) ListByComment(ctx context.Context, id uint) ([]*models.Reply, error) {
	return s.listByCommentFn(ctx, id)
}
func (s *replyRepoStub) ListByComments(ctx context.Context, ids []uint) ([]*models.Reply, error) {
	return s.listByCommentsFn(ctx, ids)
}
func (s *replyRepoStub) Update(ctx context.Context, r *models.Reply) error { return s.updateFn(ctx, r) }

func noopReplyRepo() *replyRepoStub {
	return &replyRepoStub{
		createFn: func(_ context.Context, _ *models.Reply) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Reply, error) {
			return &models.Reply{ID: id, CommentID: 1}, nil
		},
		listByCommentFn:  func(_ context.Context, _ uint) ([]*models.Reply, error) { return nil, nil },
		listByCommentsFn: func(_ context.Context, _ []uint) ([]*models.Reply, error) { return nil, nil },
		updateFn:         func(_ context.Context, _ *models.Reply) error { return nil },
	}
}

// reactionRepoStub is a stub for repository.ReactionRepository.
type reactionRepoStub struct {
	findFn         func(context.Context, models.ReactionKey) (*models.Reaction, error)
	insertFn       func(context.Context, *models.Reaction) (bool, error)
	deleteFn       func(context.Context, uint) error
	listByTargetFn func(context.Context, models.TargetType, uint) ([]*models.Reaction, error)
}

func (s *reactionRepoStub) Find(ctx context.Context, key models.ReactionKey) (*models.Reaction, error) {
	return s.findFn(ctx, key)
}
func (s *reactionRepoStub) Insert(ctx context.Context, r *models.Reaction) (bool, error) {
	return s.insertFn(ctx, r)
}
func (s *reactionRepoStub) Delete(ctx context.Context, id uint) error { return s.deleteFn(ctx, id) }
func (s *reactionRepoStub) ListByTarget(ctx context.Context, t models.TargetType, id uint) ([]*models.Reaction, error) {
	return s.listByTargetFn(ctx, t, id)
}

func noopReactionRepo() *reactionRepoStub {
	return &reactionRepoStub{
		findFn:   func(_ context.Context, _ models.ReactionKey) (*models.Reaction, error) { return nil, nil },
		insertFn: func(_ context.Context, _ *models.Reaction) (bool, error) { return true, nil },
		deleteFn: func(_ context.Context, _ uint) error { return nil },
		listByTargetFn: func(_ context.Context, _ models.TargetType, _ uint) ([]*models.Reaction, error) {
			return nil, nil
		},
	}
}

// subtreeRepoStub is a stub for repository.SubtreeRepository.
type subtreeRepoStub struct {
	deleteSubtreeFn func(context.Context, repository.NodeKind, uint) (repository.DeleteReport, error)
}

func (s *subtreeRepoStub) DeleteSubtree(ctx context.Context, kind repository.NodeKind, id uint) (repository.DeleteReport, error) {
	return s.deleteSubtreeFn(ctx, kind, id)
}

func noopSubtreeRepo() *subtreeRepoStub {
	return &subtreeRepoStub{
		deleteSubtreeFn: func(_ context.Context, kind repository.NodeKind, id uint) (repository.DeleteReport, error) {
			return repository.DeleteReport{Kind: kind, RootID: id}, nil
		},
	}
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []notifications.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev notifications.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []notifications.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]notifications.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

func (p *recordingPublisher) last() notifications.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthorized)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeNotFound)
}

func assertUnauthenticatedError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeUnauthenticated)
}
