package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"pressroom/internal/featureflags"
	"pressroom/internal/identity"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const (
	threadPostLocal   = "thread_post_id"
	threadCallerLocal = "thread_caller"
)

// ThreadUpgrade admits websocket upgrades for a visible post's thread.
func (s *Server) ThreadUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	caller := middleware.CurrentIdentity(c)
	if !s.featureFlags.Enabled(featureflags.LiveThreads, caller.CallerID) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Live threads are disabled",
		})
	}

	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetByID(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	if !post.IsPublished && !caller.IsAdmin() {
		return respondError(c, models.NewNotFoundError("Post", postID))
	}

	c.Locals(threadPostLocal, postID)
	c.Locals(threadCallerLocal, caller)
	return c.Next()
}

// ThreadWebSocketHandler streams thread snapshots: one on connect and one
// after every change event for the post.
func (s *Server) ThreadWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		postID, _ := conn.Locals(threadPostLocal).(uint)
		caller, _ := conn.Locals(threadCallerLocal).(identity.Identity)
		log := middleware.Logger.With(slog.Uint64("post_id", uint64(postID)))

		client, err := s.hub.Register(postID, caller.CallerID, conn)
		if err != nil {
			log.Warn("thread websocket rejected", slog.String("error", err.Error()))
			if msg, merr := json.Marshal(notifications.ThreadMessage{
				Type: notifications.MessageError, PostID: postID, Error: err.Error(),
			}); merr == nil {
				_ = conn.WriteMessage(websocket.TextMessage, msg)
			}
			_ = conn.Close()
			return
		}

		sub := s.feed.Subscribe(postID)
		defer sub.Close()

		ctx, cancel := context.WithCancel(s.baseContext())
		defer cancel()

		s.sendSnapshot(ctx, client, nil)
		go client.WritePump()
		go s.forwardThread(ctx, client, sub)

		// Blocks until the viewer disconnects or the hub drops the client.
		client.ReadPump()
	})
}

// forwardThread turns feed events into snapshots until ctx ends, the
// subscription closes or the post is deleted.
func (s *Server) forwardThread(ctx context.Context, client *notifications.Client, sub *notifications.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			if ev.Type == notifications.PostDeleted {
				if msg, err := json.Marshal(notifications.ThreadMessage{
					Type: notifications.MessagePostDeleted, PostID: client.PostID, Cause: &ev,
				}); err == nil {
					client.TrySend(msg)
				}
				s.hub.UnregisterClient(client)
				return
			}
			s.sendSnapshot(ctx, client, &ev)
		}
	}
}

func (s *Server) sendSnapshot(ctx context.Context, client *notifications.Client, cause *notifications.Event) {
	threads, err := s.commentService.ListByPost(ctx, client.PostID)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "thread snapshot failed",
			slog.Uint64("post_id", uint64(client.PostID)),
			slog.String("error", err.Error()),
		)
		return
	}
	msg, err := json.Marshal(notifications.ThreadMessage{
		Type:     notifications.MessageSnapshot,
		PostID:   client.PostID,
		Viewers:  s.hub.Viewers(ctx, client.PostID),
		Cause:    cause,
		Comments: threads,
	})
	if err != nil {
		return
	}
	client.TrySend(msg)
}

func (s *Server) baseContext() context.Context {
	if s.shutdownCtx != nil {
		return s.shutdownCtx
	}
	return context.Background()
}
