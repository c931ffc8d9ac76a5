package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"pressroom/internal/models"
	"pressroom/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	comment := &models.Comment{Content: "Nice post!", PostID: 1, UserID: "user_1"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	err := repo.Create(ctx, comment)
	assert.NoError(t, err)
	assert.Equal(t, uint(1), comment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPost(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE post_id = $1 ORDER BY created_at desc,id desc`)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "user_id"}).
			AddRow(2, "Comment 2", "user_102").
			AddRow(1, "Comment 1", "user_101"))

	comments, err := repo.ListByPost(ctx, 1)
	assert.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "Comment 2", comments[0].Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE "comments"."id" = $1`)).
		WithArgs(9, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	comment, err := repo.GetByID(context.Background(), 9)
	assert.Nil(t, comment)
	assert.True(t, models.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_ListByPostNewestFirst(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	post := fx.Post("author", true)
	other := fx.Post("author", true)
	first := fx.Comment(post.ID, "u1", "first")
	second := fx.Comment(post.ID, "u2", "second")
	fx.Comment(other.ID, "u3", "elsewhere")

	comments, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)
}

func TestCommentRepository_ListByPostTieBreaksOnID(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	post := fx.Post("author", true)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	a := &models.Comment{PostID: post.ID, UserID: "u1", Content: "a", CreatedAt: at, UpdatedAt: at}
	b := &models.Comment{PostID: post.ID, UserID: "u2", Content: "b", CreatedAt: at, UpdatedAt: at}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	comments, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, b.ID, comments[0].ID)
	assert.Equal(t, a.ID, comments[1].ID)
}

func TestReplyRepository_ListOldestFirst(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewReplyRepository(db)
	ctx := context.Background()

	post := fx.Post("author", true)
	c1 := fx.Comment(post.ID, "u1", "one")
	c2 := fx.Comment(post.ID, "u1", "two")
	r1 := fx.Reply(c1.ID, "u2", "first")
	r2 := fx.Reply(c2.ID, "u2", "other")
	r3 := fx.Reply(c1.ID, "u3", "second")

	replies, err := repo.ListByComment(ctx, c1.ID)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, r1.ID, replies[0].ID)
	assert.Equal(t, r3.ID, replies[1].ID)

	all, err := repo.ListByComments(ctx, []uint{c1.ID, c2.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{r1.ID, r2.ID, r3.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})

	none, err := repo.ListByComments(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestReplyRepository_UpdateKeepsCreatedAt(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewReplyRepository(db)
	ctx := context.Background()

	post := fx.Post("author", true)
	c := fx.Comment(post.ID, "u1", "one")
	r := fx.Reply(c.ID, "u2", "draft")

	r.Content = "final"
	r.WasEdited = true
	r.UpdatedAt = r.CreatedAt.Add(time.Minute)
	require.NoError(t, repo.Update(ctx, r))

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Content)
	assert.True(t, got.WasEdited)
	assert.True(t, got.CreatedAt.Equal(r.CreatedAt))

	_, err = repo.GetByID(ctx, r.ID+100)
	assert.True(t, models.IsNotFound(err))
}
