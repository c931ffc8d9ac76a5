package server

import (
	"strings"

	"pressroom/internal/middleware"
	"pressroom/internal/models"

	"github.com/gofiber/fiber/v2"
)

type toggleReactionRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=comment reply"`
	TargetID   uint   `json:"target_id" validate:"required"`
	Emoji      string `json:"emoji" validate:"notblank,max=32"`
}

func (r *toggleReactionRequest) trim() {
	r.TargetType = strings.ToLower(strings.TrimSpace(r.TargetType))
	r.Emoji = strings.TrimSpace(r.Emoji)
}

// GetPalette handles GET /api/reactions/palette
func (s *Server) GetPalette(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"emoji": s.reactionService.Palette()})
}

// GetReactions handles GET /api/reactions/:targetType/:targetId
// @Summary Reactions on a comment or reply, grouped by emoji
// @Tags reactions
// @Produce json
// @Param targetType path string true "comment or reply"
// @Param targetId path int true "Target ID"
// @Success 200 {array} models.ReactionGroup
// @Failure 400 {object} models.ErrorResponse
// @Router /reactions/{targetType}/{targetId} [get]
func (s *Server) GetReactions(c *fiber.Ctx) error {
	targetID, err := parseID(c, "targetId")
	if err != nil {
		return nil
	}
	groups, err := s.reactionService.GetByTarget(c.UserContext(), models.TargetType(c.Params("targetType")), targetID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(groups)
}

// ToggleReaction handles POST /api/reactions/toggle
// @Summary Add the caller's emoji, or remove it when already present
// @Tags reactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{action=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /reactions/toggle [post]
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	var req toggleReactionRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	action, err := s.reactionService.Toggle(c.UserContext(), middleware.CurrentIdentity(c),
		models.TargetType(req.TargetType), req.TargetID, req.Emoji)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"action": action})
}
