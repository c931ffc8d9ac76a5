package server

import (
	"strings"
	"time"

	"pressroom/internal/identity"
	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/service"

	"github.com/gofiber/fiber/v2"
)

// syncRequest lets a client refresh display fields the token lacks.
type syncRequest struct {
	Name   string `json:"name" validate:"max=100"`
	Email  string `json:"email" validate:"omitempty,email"`
	Avatar string `json:"avatar" validate:"omitempty,url"`
}

func (r *syncRequest) trim() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Avatar = strings.TrimSpace(r.Avatar)
}

type updateProfileRequest struct {
	Bio     string `json:"bio" validate:"max=1000"`
	Twitter string `json:"twitter" validate:"max=64"`
	GitHub  string `json:"github" validate:"max=64"`
	Website string `json:"website" validate:"omitempty,url,max=255"`
}

func (r *updateProfileRequest) trim() {
	r.Bio = strings.TrimSpace(r.Bio)
	r.Twitter = strings.TrimPrefix(strings.TrimSpace(r.Twitter), "@")
	r.GitHub = strings.TrimSpace(r.GitHub)
	r.Website = strings.TrimSpace(r.Website)
}

// publicProfile is a user as shown to other visitors.
type publicProfile struct {
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar,omitempty"`
	Bio        string    `json:"bio,omitempty"`
	Twitter    string    `json:"twitter,omitempty"`
	GitHub     string    `json:"github,omitempty"`
	Website    string    `json:"website,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPublicProfile(u *models.User) publicProfile {
	return publicProfile{
		ExternalID: u.ExternalID,
		Name:       u.Name,
		Avatar:     u.Avatar,
		Bio:        u.Bio,
		Twitter:    u.Twitter,
		GitHub:     u.GitHub,
		Website:    u.Website,
		CreatedAt:  u.CreatedAt,
	}
}

func syncInput(caller identity.Identity) service.SyncUserInput {
	name := caller.Name
	if name == "" {
		name = caller.CallerID
	}
	return service.SyncUserInput{
		ExternalID: caller.CallerID,
		Name:       name,
		Email:      caller.Email,
		Avatar:     caller.Avatar,
	}
}

// SyncMe handles POST /api/users/me/sync. Body fields override the
// token's display claims.
// @Summary Create or refresh the caller's profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /users/me/sync [post]
func (s *Server) SyncMe(c *fiber.Ctx) error {
	var req syncRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}

	in := syncInput(middleware.CurrentIdentity(c))
	if req.Name != "" {
		in.Name = req.Name
	}
	if req.Email != "" {
		in.Email = req.Email
	}
	if req.Avatar != "" {
		in.Avatar = req.Avatar
	}

	user, err := s.userService.GetOrCreate(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	user, err := s.userService.GetOrCreate(c.UserContext(), syncInput(middleware.CurrentIdentity(c)))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateMyProfile handles PUT /api/users/me. Every editable field is
// replaced; omitted fields are cleared.
func (s *Server) UpdateMyProfile(c *fiber.Ctx) error {
	var req updateProfileRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	caller := middleware.CurrentIdentity(c)
	user, err := s.userService.UpdateProfile(c.UserContext(), caller, service.UpdateProfileInput{
		ExternalID: caller.CallerID,
		Bio:        req.Bio,
		Twitter:    req.Twitter,
		GitHub:     req.GitHub,
		Website:    req.Website,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// GetUserProfile handles GET /api/users/:externalId
// @Summary Public profile
// @Tags users
// @Produce json
// @Param externalId path string true "Identity provider user id"
// @Success 200 {object} publicProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{externalId} [get]
func (s *Server) GetUserProfile(c *fiber.Ctx) error {
	externalID, err := externalIDParam(c)
	if err != nil {
		return nil
	}
	user, err := s.userService.GetByExternalID(c.UserContext(), externalID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(toPublicProfile(user))
}

// AdminListUsers handles GET /api/admin/users
func (s *Server) AdminListUsers(c *fiber.Ctx) error {
	users, err := s.userService.List(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page(users, parsePagination(c, 50)))
}
