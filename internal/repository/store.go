// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Users() UserRepository
	Posts() PostRepository
	Comments() CommentRepository
	Replies() ReplyRepository
	Reactions() ReactionRepository
	Subtrees() SubtreeRepository
	// Atomic runs fn in a single transaction. Nested calls join the
	// outer transaction.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

type commitHooks struct {
	fns []func()
}

type gormStore struct {
	db    *gorm.DB
	hooks *commitHooks
}

// NewStore creates a Store backed by db.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// afterCommit defers fn until the enclosing transaction commits, or runs
// it now outside a transaction.
func (s *gormStore) afterCommit(fn func()) {
	if s.hooks == nil {
		fn()
		return
	}
	s.hooks.fns = append(s.hooks.fns, fn)
}

func (s *gormStore) Users() UserRepository {
	return &userRepository{db: s.db, afterCommit: s.afterCommit}
}

func (s *gormStore) Posts() PostRepository {
	return &postRepository{db: s.db, afterCommit: s.afterCommit}
}

func (s *gormStore) Comments() CommentRepository {
	return &commentRepository{db: s.db}
}

func (s *gormStore) Replies() ReplyRepository {
	return &replyRepository{db: s.db}
}

func (s *gormStore) Reactions() ReactionRepository {
	return &reactionRepository{db: s.db}
}

func (s *gormStore) Subtrees() SubtreeRepository {
	return &subtreeRepository{db: s.db, inTx: s.hooks != nil, afterCommit: s.afterCommit}
}

func (s *gormStore) Atomic(ctx context.Context, fn func(tx Store) error) error {
	if s.hooks != nil {
		return fn(s)
	}

	hooks := &commitHooks{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, hooks: hooks})
	})
	if err != nil {
		return err
	}
	for _, h := range hooks.fns {
		h()
	}
	return nil
}

func runNow(fn func()) { fn() }
