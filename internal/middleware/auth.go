// Package middleware provides request-scoped Fiber middleware: identity,
// logging, tracing, metrics and rate limiting.
package middleware

import (
	"context"
	"errors"

	"pressroom/internal/identity"
	"pressroom/internal/models"

	"github.com/gofiber/fiber/v2"
)

const identityLocal = "identity"

// IdentityRequired resolves the bearer token once per request and rejects
// requests without a verified identity.
func IdentityRequired(resolver *identity.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := resolver.ResolveHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		attachIdentity(c, id)
		return c.Next()
	}
}

// IdentityOptional resolves a bearer token when one is sent. Requests
// without one continue anonymously; an invalid token is still rejected.
func IdentityOptional(resolver *identity.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			attachIdentity(c, identity.Anonymous)
			return c.Next()
		}
		id, err := resolver.ResolveHeader(header)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}
		attachIdentity(c, id)
		return c.Next()
	}
}

// AdminRequired rejects callers whose resolved role is not admin. It must
// run after IdentityRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := CurrentIdentity(c)
		if err := id.RequireAdmin("access this resource"); err != nil {
			status := fiber.StatusForbidden
			var appErr *models.AppError
			if errors.As(err, &appErr) && appErr.Code == models.CodeUnauthenticated {
				status = fiber.StatusUnauthorized
			}
			return models.RespondWithError(c, status, err)
		}
		return c.Next()
	}
}

// CurrentIdentity returns the identity resolved for this request.
func CurrentIdentity(c *fiber.Ctx) identity.Identity {
	if id, ok := c.Locals(identityLocal).(identity.Identity); ok {
		return id
	}
	return identity.Anonymous
}

func attachIdentity(c *fiber.Ctx, id identity.Identity) {
	c.Locals(identityLocal, id)
	ctx := identity.WithIdentity(c.UserContext(), id)
	if id.Present {
		ctx = context.WithValue(ctx, UserIDKey, id.CallerID)
	}
	c.SetUserContext(ctx)
}
