// Package notifications carries thread change events from services to
// live subscribers, in-process or across instances through Redis.
package notifications

import (
	"fmt"
	"time"
)

// EventType names a change to a post's thread.
type EventType string

const (
	CommentCreated  EventType = "comment.created"
	CommentUpdated  EventType = "comment.updated"
	CommentDeleted  EventType = "comment.deleted"
	ReplyCreated    EventType = "reply.created"
	ReplyUpdated    EventType = "reply.updated"
	ReplyDeleted    EventType = "reply.deleted"
	ReactionToggled EventType = "reaction.toggled"
	PostUpdated     EventType = "post.updated"
	PostDeleted     EventType = "post.deleted"
)

// Event announces that the thread of PostID changed. Subscribers re-read
// state rather than applying the event.
type Event struct {
	Type     EventType `json:"type"`
	PostID   uint      `json:"post_id"`
	TargetID uint      `json:"target_id,omitempty"`
	ActorID  string    `json:"actor_id,omitempty"`
	At       time.Time `json:"at"`
	// Origin is the instance that published the event.
	Origin string `json:"origin,omitempty"`
}

const postChannelPrefix = "feed:post:"

// PostChannel returns the Redis channel for a post's thread events.
func PostChannel(postID uint) string {
	return fmt.Sprintf("%s%d", postChannelPrefix, postID)
}
