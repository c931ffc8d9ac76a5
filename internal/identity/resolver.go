package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"pressroom/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Name     string         `json:"name,omitempty"`
	Email    string         `json:"email,omitempty"`
	Picture  string         `json:"picture,omitempty"`
	Role     string         `json:"role,omitempty"`
	Metadata ClaimsMetadata `json:"metadata,omitempty"`
	jwt.RegisteredClaims
}

// ClaimsMetadata holds provider-managed public metadata.
type ClaimsMetadata struct {
	Role string `json:"role,omitempty"`
}

func (c *Claims) roleClaim() string {
	if c.Metadata.Role != "" {
		return c.Metadata.Role
	}
	return c.Role
}

// Resolver verifies provider tokens.
type Resolver struct {
	secret   []byte
	issuer   string
	audience string
}

// NewResolver creates a resolver for HS256 tokens. Empty issuer or
// audience disables that check.
func NewResolver(secret, issuer, audience string) *Resolver {
	return &Resolver{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Resolve verifies token and returns the caller it identifies.
func (r *Resolver) Resolve(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Anonymous, models.NewUnauthenticatedError("Authorization token required")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if r.issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.issuer))
	}
	if r.audience != "" {
		opts = append(opts, jwt.WithAudience(r.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return r.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Anonymous, &models.AppError{Code: models.CodeUnauthenticated, Message: "Token expired", Err: err}
		}
		return Anonymous, &models.AppError{Code: models.CodeUnauthenticated, Message: "Invalid or expired token", Err: err}
	}

	if claims.Subject == "" {
		return Anonymous, models.NewUnauthenticatedError("Invalid token structure - missing subject")
	}

	return Identity{
		Present:  true,
		CallerID: claims.Subject,
		Role:     ParseRole(claims.roleClaim()),
		Name:     claims.Name,
		Email:    claims.Email,
		Avatar:   claims.Picture,
	}, nil
}

// ResolveHeader extracts a bearer token from an Authorization header value.
func (r *Resolver) ResolveHeader(header string) (Identity, error) {
	if header == "" {
		return Anonymous, models.NewUnauthenticatedError("Authorization header required")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Anonymous, models.NewUnauthenticatedError("Invalid authorization header format")
	}
	return r.Resolve(parts[1])
}

// TokenParams describes a token minted for local tooling.
type TokenParams struct {
	Subject string
	Name    string
	Email   string
	Avatar  string
	Role    Role
	TTL     time.Duration
}

// SignToken mints a token the resolver accepts. Production tokens come
// from the identity provider; this serves development tools and tests.
func (r *Resolver) SignToken(p TokenParams) (string, error) {
	if p.Subject == "" {
		return "", fmt.Errorf("sign token: subject required")
	}
	ttl := p.TTL
	if ttl == 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := Claims{
		Name:     p.Name,
		Email:    p.Email,
		Picture:  p.Avatar,
		Metadata: ClaimsMetadata{Role: p.Role.String()},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if r.issuer != "" {
		claims.Issuer = r.issuer
	}
	if r.audience != "" {
		claims.Audience = jwt.ClaimStrings{r.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(r.secret)
}
