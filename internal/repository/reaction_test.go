package repository

import (
	"context"
	"regexp"
	"testing"

	"pressroom/internal/models"
	"pressroom/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionRepository_InsertUsesOnConflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	tests := []struct {
		name     string
		rows     *sqlmock.Rows
		inserted bool
	}{
		{name: "new row", rows: sqlmock.NewRows([]string{"id"}).AddRow(7), inserted: true},
		{name: "conflict", rows: sqlmock.NewRows([]string{"id"}), inserted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT ("target_type","target_id","user_id","emoji") DO NOTHING`)).
				WillReturnRows(tt.rows)
			mock.ExpectCommit()

			ok, err := repo.Insert(ctx, &models.Reaction{
				TargetType: models.TargetComment, TargetID: 1, UserID: "u1", Emoji: "👍",
			})
			assert.NoError(t, err)
			assert.Equal(t, tt.inserted, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestReactionRepository_FindMissingReturnsNil(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "reactions" WHERE target_type = $1 AND target_id = $2 AND user_id = $3 AND emoji = $4`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	got, err := repo.Find(context.Background(), models.ReactionKey{
		TargetType: models.TargetReply, TargetID: 3, UserID: "u1", Emoji: "🎉",
	})
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_Ledger(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	fx := testutil.NewFixtures(t, db)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	post := fx.Post("author", true)
	c := fx.Comment(post.ID, "u1", "hi")

	key := models.ReactionKey{TargetType: models.TargetComment, TargetID: c.ID, UserID: "u2", Emoji: "❤️"}

	ok, err := repo.Insert(ctx, &models.Reaction{TargetType: key.TargetType, TargetID: key.TargetID, UserID: key.UserID, Emoji: key.Emoji})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Insert(ctx, &models.Reaction{TargetType: key.TargetType, TargetID: key.TargetID, UserID: key.UserID, Emoji: key.Emoji})
	require.NoError(t, err)
	assert.False(t, ok, "duplicate key must not insert")
	assert.Equal(t, int64(1), testutil.Count(t, db, &models.Reaction{}))

	found, err := repo.Find(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, found)

	fx.Reaction(models.TargetComment, c.ID, "u3", "👍")
	fx.Reaction(models.TargetReply, c.ID, "u3", "👍")

	list, err := repo.ListByTarget(ctx, models.TargetComment, c.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, found.ID, list[0].ID)

	require.NoError(t, repo.Delete(ctx, found.ID))
	found, err = repo.Find(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, found)

	assert.True(t, models.IsNotFound(repo.Delete(ctx, 9999)))
}
