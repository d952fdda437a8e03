// Package middleware holds the fiber authentication and authorization handlers
// guarding the mileage API.
package middleware

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/amirasaad/mileage/pkg/config"
	"github.com/amirasaad/mileage/pkg/domain"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is the fiber Locals key the verified token is stored under.
const ContextKey = "user"

// Role is the caller's privilege level carried in the token.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func (r Role) rank() int {
	switch r {
	case RoleStudent:
		return 1
	case RoleStaff:
		return 2
	case RoleAdmin:
		return 3
	}
	return 0
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r.rank() > 0 }

// Satisfies reports whether r grants at least the privileges of min.
func (r Role) Satisfies(min Role) bool {
	return r.Valid() && r.rank() >= min.rank()
}

// ParseRole accepts any letter case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrValidation, s)
	}
	return r, nil
}

// Claims are the JWT claims issued for API callers.
type Claims struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
	jwt.RegisteredClaims
}

// JwtProtected verifies the bearer token and stores it under ContextKey.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwt.SigningMethodHS256.Alg(),
			Key:    []byte(cfg.Secret),
		},
		ContextKey:   ContextKey,
		Claims:       &Claims{},
		ErrorHandler: jwtError,
		SuccessHandler: func(c *fiber.Ctx) error {
			claims, err := ClaimsFromCtx(c)
			if err != nil {
				return jwtError(c, err)
			}
			if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
				return jwtError(c, errors.New("token issuer mismatch"))
			}
			if !claims.Role.Valid() {
				return jwtError(c, errors.New("token carries no valid role"))
			}
			return c.Next()
		},
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if strings.EqualFold(err.Error(), "missing or malformed JWT") {
		return problem(c, fiber.StatusBadRequest, "Bad Request", "Missing or malformed JWT")
	}
	return problem(c, fiber.StatusUnauthorized, "Unauthorized", "Invalid or expired JWT")
}

// ClaimsFromCtx returns the claims of the token verified by JwtProtected.
func ClaimsFromCtx(c *fiber.Ctx) (*Claims, error) {
	token, ok := c.Locals(ContextKey).(*jwt.Token)
	if !ok || token == nil {
		return nil, domain.ErrUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// RequireRole rejects callers whose role is below min.
func RequireRole(min Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return problem(c, fiber.StatusUnauthorized, "Unauthorized", "missing user context")
		}
		if !claims.Role.Satisfies(min) {
			return problem(c, fiber.StatusForbidden, "Forbidden", fmt.Sprintf("requires role %s", min))
		}
		return c.Next()
	}
}

// RequireSelfOrRole lets callers act on their own user id, taken from the
// route parameter param, or on anyone when their role is at least min.
func RequireSelfOrRole(param string, min Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := ClaimsFromCtx(c)
		if err != nil {
			return problem(c, fiber.StatusUnauthorized, "Unauthorized", "missing user context")
		}
		if claims.Role.Satisfies(min) {
			return c.Next()
		}
		target, err := strconv.ParseInt(c.Params(param), 10, 64)
		if err == nil && claims.Role.Valid() && target == claims.UserID {
			return c.Next()
		}
		return problem(c, fiber.StatusForbidden, "Forbidden", "not allowed to access this account")
	}
}

// IssueToken signs a token for userID. A non-positive ttl uses cfg.Expiry.
func IssueToken(cfg *config.Jwt, userID int64, role Role, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("%w: jwt secret is empty", domain.ErrValidation)
	}
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrValidation, role)
	}
	if ttl <= 0 {
		ttl = cfg.Expiry
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

func problem(c *fiber.Ctx, status int, title, detail string) error {
	return c.Status(status).JSON(fiber.Map{
		"type":     "about:blank",
		"title":    title,
		"status":   status,
		"detail":   detail,
		"instance": c.OriginalURL(),
	}, "application/problem+json")
}
