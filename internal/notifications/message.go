package notifications

import "pressroom/internal/models"

// Thread websocket message types.
const (
	MessageSnapshot    = "snapshot"
	MessagePostDeleted = "post_deleted"
	MessageError       = "error"
)

// ThreadMessage is sent to thread websocket viewers. A snapshot carries the
// full thread; Cause is the event that triggered it, nil for the first.
type ThreadMessage struct {
	Type     string                  `json:"type"`
	PostID   uint                    `json:"post_id"`
	Viewers  int64                   `json:"viewers"`
	Cause    *Event                  `json:"cause,omitempty"`
	Comments []*models.CommentThread `json:"comments"`
	Error    string                  `json:"error,omitempty"`
}
