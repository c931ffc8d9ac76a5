// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pressroom/internal/database"
	"pressroom/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB opens a private in-memory database with every persistent
// model migrated. The pool holds a single connection so that all
// statements see the same in-memory database.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

// Fixtures inserts rows directly, bypassing services.
type Fixtures struct {
	t     testing.TB
	db    *gorm.DB
	clock time.Time
	seq   int
}

// NewFixtures returns a fixture builder whose rows get strictly
// increasing timestamps starting at a fixed instant.
func NewFixtures(t testing.TB, db *gorm.DB) *Fixtures {
	return &Fixtures{t: t, db: db, clock: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *Fixtures) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// User inserts a profile for externalID.
func (f *Fixtures) User(externalID, name string) *models.User {
	f.t.Helper()
	now := f.tick()
	u := &models.User{ExternalID: externalID, Name: name, CreatedAt: now, UpdatedAt: now}
	require.NoError(f.t, f.db.Create(u).Error)
	return u
}

// Post inserts a post owned by userID.
func (f *Fixtures) Post(userID string, published bool) *models.Post {
	f.t.Helper()
	f.seq++
	now := f.tick()
	p := &models.Post{
		Title:       fmt.Sprintf("Post %d", f.seq),
		Description: fmt.Sprintf("Description %d", f.seq),
		Content:     models.RichText(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"hello world"}]}]}`),
		Tags:        []string{"go"},
		Slug:        fmt.Sprintf("post-%d", f.seq),
		IsPublished: published,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(f.t, f.db.Create(p).Error)
	return p
}

// Comment inserts a comment on postID.
func (f *Fixtures) Comment(postID uint, userID, content string) *models.Comment {
	f.t.Helper()
	now := f.tick()
	c := &models.Comment{PostID: postID, UserID: userID, Content: content, CreatedAt: now, UpdatedAt: now}
	require.NoError(f.t, f.db.Create(c).Error)
	return c
}

// Reply inserts a reply on commentID.
func (f *Fixtures) Reply(commentID uint, userID, content string) *models.Reply {
	f.t.Helper()
	now := f.tick()
	r := &models.Reply{CommentID: commentID, UserID: userID, Content: content, CreatedAt: now, UpdatedAt: now}
	require.NoError(f.t, f.db.Create(r).Error)
	return r
}

// Reaction inserts a reaction.
func (f *Fixtures) Reaction(target models.TargetType, targetID uint, userID, emoji string) *models.Reaction {
	f.t.Helper()
	r := &models.Reaction{TargetType: target, TargetID: targetID, UserID: userID, Emoji: emoji, CreatedAt: f.tick()}
	require.NoError(f.t, f.db.Create(r).Error)
	return r
}

// Count returns the number of rows in model's table.
func Count(t testing.TB, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
