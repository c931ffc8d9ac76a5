package models

import (
	"fmt"
	"time"
)

// TargetType discriminates what a reaction is attached to.
type TargetType string

const (
	TargetComment TargetType = "comment"
	TargetReply   TargetType = "reply"
)

// ParseTargetType validates a target type from user input.
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetComment, TargetReply:
		return TargetType(s), nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown reaction target type %q", s))
}

// Reaction is one user's emoji on a comment or reply. The
// (target_type, target_id, user_id, emoji) tuple is unique.
type Reaction struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TargetType TargetType `gorm:"size:16;not null;uniqueIndex:idx_reactions_key,priority:1;index:idx_reactions_target,priority:1" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_reactions_key,priority:2;index:idx_reactions_target,priority:2" json:"target_id"`
	UserID     string     `gorm:"size:191;not null;uniqueIndex:idx_reactions_key,priority:3" json:"user_id"`
	Emoji      string     `gorm:"size:64;not null;uniqueIndex:idx_reactions_key,priority:4" json:"emoji"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Reaction) TableName() string {
	return "reactions"
}

// ReactionKey identifies at most one reaction row.
type ReactionKey struct {
	TargetType TargetType
	TargetID   uint
	UserID     string
	Emoji      string
}

// ReactionGroup aggregates the reactions of one emoji on a target.
type ReactionGroup struct {
	Emoji   string   `json:"emoji"`
	Count   int      `json:"count"`
	UserIDs []string `json:"user_ids"`
}

// ToggleAction is the outcome of a reaction toggle.
type ToggleAction string

const (
	ReactionAdded   ToggleAction = "added"
	ReactionRemoved ToggleAction = "removed"
)

// EmojiPalette is the suggested reaction set shown by clients.
var EmojiPalette = []string{"👍", "❤️", "😂", "😮", "😢", "🎉"}

// InPalette reports whether emoji is one of the suggested reactions.
func InPalette(emoji string) bool {
	for _, e := range EmojiPalette {
		if e == emoji {
			return true
		}
	}
	return false
}
