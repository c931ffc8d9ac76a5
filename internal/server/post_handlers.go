package server

import (
	"net/url"
	"strings"

	"pressroom/internal/middleware"
	"pressroom/internal/models"
	"pressroom/internal/service"
	"pressroom/internal/validation"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Title       string          `json:"title" validate:"notblank,max=200"`
	Description string          `json:"description" validate:"max=500"`
	Content     models.RichText `json:"content"`
	Tags        []string        `json:"tags" validate:"max=10,dive,notblank,max=32"`
	Slug        string          `json:"slug" validate:"omitempty,slug"`
	IsPublished bool            `json:"is_published"`
	FollowupURL string          `json:"followup_url" validate:"omitempty,url"`
}

func (r *createPostRequest) trim() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Slug = strings.TrimSpace(r.Slug)
	r.Tags = trimTags(r.Tags)
}

type updatePostRequest struct {
	Title       *string         `json:"title" validate:"omitnil,notblank,max=200"`
	Description *string         `json:"description" validate:"omitnil,max=500"`
	Content     models.RichText `json:"content"`
	Tags        *[]string       `json:"tags" validate:"omitnil,max=10,dive,notblank,max=32"`
	Slug        *string         `json:"slug" validate:"omitnil,slug"`
	IsPublished *bool           `json:"is_published"`
	FollowupURL *string         `json:"followup_url" validate:"omitnil,omitempty,url"`
}

func (r *updatePostRequest) trim() {
	trimPtr(r.Title)
	trimPtr(r.Description)
	trimPtr(r.Slug)
	if r.Tags != nil {
		tags := trimTags(*r.Tags)
		r.Tags = &tags
	}
}

func trimTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, strings.ToLower(strings.TrimSpace(t)))
	}
	return out
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// GetPosts handles GET /api/posts
// @Summary List published posts
// @Tags posts
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Post
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	posts, err := s.postService.ListPublished(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page(posts, parsePagination(c, 20)))
}

// SearchPosts handles GET /api/posts/search?q=...
// @Summary Search published posts
// @Tags posts
// @Produce json
// @Param q query string true "Query"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/search [get]
func (s *Server) SearchPosts(c *fiber.Ctx) error {
	p := parsePagination(c, 10)
	posts, err := s.postService.Search(c.UserContext(), c.Query("q"), p.Limit, p.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPostBySlug handles GET /api/posts/slug/:slug
// @Summary Get a post with its author
// @Tags posts
// @Produce json
// @Param slug path string true "Post slug"
// @Success 200 {object} models.PostWithAuthor
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/slug/{slug} [get]
func (s *Server) GetPostBySlug(c *fiber.Ctx) error {
	post, err := s.postService.GetBySlugWithAuthor(c.UserContext(), middleware.CurrentIdentity(c), c.Params("slug"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// RecordView handles POST /api/posts/:id/views
func (s *Server) RecordView(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.postService.IncrementViewCount(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetUserPosts handles GET /api/users/:externalId/posts. Drafts are
// included for admins.
func (s *Server) GetUserPosts(c *fiber.Ctx) error {
	externalID, err := externalIDParam(c)
	if err != nil {
		return nil
	}
	caller := middleware.CurrentIdentity(c)
	posts, err := s.postService.ListByAuthor(c.UserContext(), externalID, !caller.IsAdmin())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page(posts, parsePagination(c, 20)))
}

// AdminListPosts handles GET /api/admin/posts
func (s *Server) AdminListPosts(c *fiber.Ctx) error {
	posts, err := s.postService.List(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page(posts, parsePagination(c, 50)))
}

// AdminPostStats handles GET /api/admin/posts/stats
func (s *Server) AdminPostStats(c *fiber.Ctx) error {
	stats, err := s.postService.ListWithStats(c.UserContext(), middleware.CurrentIdentity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// AdminGetPost handles GET /api/admin/posts/:id
func (s *Server) AdminGetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	post, err := s.postService.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// AdminCreatePost handles POST /api/admin/posts. A missing slug is
// derived from the title.
// @Summary Create a post
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/posts [post]
func (s *Server) AdminCreatePost(c *fiber.Ctx) error {
	var req createPostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Slug == "" {
		req.Slug = validation.Slugify(req.Title)
	}

	post, err := s.postService.Create(c.UserContext(), middleware.CurrentIdentity(c), service.CreatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Tags:        req.Tags,
		Slug:        req.Slug,
		IsPublished: req.IsPublished,
		FollowupURL: req.FollowupURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// AdminUpdatePost handles PUT /api/admin/posts/:id
func (s *Server) AdminUpdatePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req updatePostRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.postService.Update(c.UserContext(), middleware.CurrentIdentity(c), id, service.UpdatePostInput{
		Title:       req.Title,
		Description: req.Description,
		Content:     req.Content,
		Tags:        req.Tags,
		Slug:        req.Slug,
		IsPublished: req.IsPublished,
		FollowupURL: req.FollowupURL,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// AdminDeletePost handles DELETE /api/admin/posts/:id and reports how
// many rows the cascade removed.
func (s *Server) AdminDeletePost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	report, err := s.postService.Remove(c.UserContext(), middleware.CurrentIdentity(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(deleteReportJSON(report))
}

// externalIDParam reads and unescapes the :externalId route parameter.
// Provider ids such as "auth0|123" arrive percent-encoded.
func externalIDParam(c *fiber.Ctx) (string, error) {
	raw := c.Params("externalId")
	id, err := url.PathUnescape(raw)
	if err != nil || strings.TrimSpace(id) == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid user ID"))
		return "", errResponseWritten
	}
	return id, nil
}
