// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a slug-addressed blog post.
type Post struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Content     RichText  `gorm:"type:text" json:"content"`
	Tags        []string  `gorm:"type:text;serializer:json" json:"tags"`
	Slug        string    `gorm:"size:191;not null;uniqueIndex" json:"slug"`
	IsPublished bool      `gorm:"not null;default:false;index" json:"is_published"`
	FollowupURL string    `json:"followup_url,omitempty"`
	UserID      string    `gorm:"size:191;not null;index" json:"user_id"`
	ViewCount   int64     `gorm:"not null;default:0" json:"view_count"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// ReadingMinutes is derived from Content on read.
	ReadingMinutes int `gorm:"-" json:"reading_minutes"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// BeforeSave stores a missing tag list as an empty JSON array.
func (p *Post) BeforeSave(*gorm.DB) error {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return nil
}

// PostWithAuthor is a post joined with its owner's display fields.
type PostWithAuthor struct {
	*Post
	Author Author `json:"author"`
}

// PostStats carries the thread size of a post.
type PostStats struct {
	*Post
	CommentCount int64 `json:"comment_count"`
	ReplyCount   int64 `json:"reply_count"`
}
