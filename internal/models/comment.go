package models

import "time"

// Comment is a top-level remark on a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	UserID    string    `gorm:"size:191;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	WasEdited bool      `gorm:"not null;default:false" json:"was_edited"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Comment) TableName() string {
	return "comments"
}

// Reply answers a comment. Replies do not nest further.
type Reply struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;index:idx_replies_comment_created,priority:1" json:"comment_id"`
	UserID    string    `gorm:"size:191;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	WasEdited bool      `gorm:"not null;default:false" json:"was_edited"`
	CreatedAt time.Time `gorm:"index:idx_replies_comment_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Reply) TableName() string {
	return "replies"
}

// ReplyView is a reply annotated with its author.
type ReplyView struct {
	*Reply
	Author Author `json:"author"`
}

// CommentThread is a comment annotated with its author and its replies
// in chronological order.
type CommentThread struct {
	*Comment
	Author  Author       `json:"author"`
	Replies []*ReplyView `json:"replies"`
}
