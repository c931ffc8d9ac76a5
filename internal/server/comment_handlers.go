package server

import (
	"strings"

	"pressroom/internal/middleware"
	"pressroom/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// contentRequest is the body of comment and reply writes.
type contentRequest struct {
	Content string `json:"content" validate:"notblank,max=5000"`
}

func (r *contentRequest) trim() {
	r.Content = strings.TrimSpace(r.Content)
}

func deleteReportJSON(r repository.DeleteReport) fiber.Map {
	return fiber.Map{
		"deleted": fiber.Map{
			"posts":     r.Posts,
			"comments":  r.Comments,
			"replies":   r.Replies,
			"reactions": r.Reactions,
		},
	}
}

// GetComments handles GET /api/posts/:id/comments
// @Summary List a post's thread
// @Description Comments newest first, each with its replies oldest first.
// @Tags comments
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {array} models.CommentThread
// @Router /posts/{id}/comments [get]
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	threads, err := s.commentService.ListByPost(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(threads)
}

// CreateComment handles POST /api/posts/:id/comments
// @Summary Comment on a post
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Post ID"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/comments [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), middleware.CurrentIdentity(c), postID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), middleware.CurrentIdentity(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.commentService.DeleteComment(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deleteReportJSON(report))
}

// GetReplies handles GET /api/comments/:id/replies
func (s *Server) GetReplies(c *fiber.Ctx) error {
	commentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	replies, err := s.commentService.ListReplies(c.UserContext(), commentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(replies)
}

// CreateReply handles POST /api/comments/:id/replies
func (s *Server) CreateReply(c *fiber.Ctx) error {
	commentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	reply, err := s.commentService.CreateReply(c.UserContext(), middleware.CurrentIdentity(c), commentID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// UpdateReply handles PUT /api/replies/:id
func (s *Server) UpdateReply(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req contentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	reply, err := s.commentService.UpdateReply(c.UserContext(), middleware.CurrentIdentity(c), id, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(reply)
}

// DeleteReply handles DELETE /api/replies/:id
func (s *Server) DeleteReply(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.commentService.DeleteReply(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deleteReportJSON(report))
}
