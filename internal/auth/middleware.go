package auth

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hakikenya/haki-backend/internal/policy"
	"github.com/hakikenya/haki-backend/internal/workflow"
	"github.com/hakikenya/haki-backend/pkg/models"
)

// CookieName is the session cookie carrying the JWT for browser clients.
// API clients may send the same token as a Bearer header instead.
const CookieName = "haki_token"

/* ============================== JWT Claims ============================== */

// Claims represents the JWT payload we issue and expect.
type Claims struct {
	Sub  string `json:"sub"`  // profile ID
	Role string `json:"role"` // "client" | "lawyer" | "paralegal"
	jwt.RegisteredClaims
}

/* ============================== JWT Helpers ============================= */

// IssueToken signs a JWT for the given profile and role.
func IssueToken(userID, role string, ttl time.Duration) (string, error) {
	claims := &Claims{
		Sub:  userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

/* ============================== Middleware ============================== */

func tokenFromRequest(c *fiber.Ctx) string {
	if h := c.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Cookies(CookieName)
}

// RequireAuth validates the JWT (Bearer header or session cookie) and
// injects userID and role into the context.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := tokenFromRequest(c)
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			return fiber.ErrUnauthorized
		}

		claims, ok := token.Claims.(*Claims)
		if !ok {
			return fiber.ErrUnauthorized
		}

		c.Locals("userID", claims.Sub)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}

// MustUserID reads the authenticated user ID from context or panics (programming error).
func MustUserID(c *fiber.Ctx) string {
	if v := c.Locals("userID"); v != nil {
		return v.(string)
	}
	panic(errors.New("user not in context"))
}

// MustRole reads the authenticated user role from context or panics (programming error).
func MustRole(c *fiber.Ctx) string {
	if v := c.Locals("role"); v != nil {
		return v.(string)
	}
	panic(errors.New("role not in context"))
}

// Actor builds the policy actor for the current request. Safe to call on
// public routes: without auth locals it returns the anonymous actor.
func Actor(c *fiber.Ctx) policy.Actor {
	v := c.Locals("userID")
	if v == nil {
		return policy.Anonymous
	}
	id, err := uuid.Parse(v.(string))
	if err != nil {
		return policy.Anonymous
	}
	role, _ := c.Locals("role").(string)
	return policy.Actor{ID: id, Role: models.Role(role), Authenticated: true}
}

// RequireStaff ensures the authenticated user is a lawyer or paralegal.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !models.Role(MustRole(c)).IsStaff() {
			return fiber.ErrForbidden
		}
		return c.Next()
	}
}

/* =========================== Error Formatting =========================== */

// httpCodeToString converts an HTTP status code to a short, stable string.
func httpCodeToString(code int) string {
	switch code {
	case fiber.StatusBadRequest:
		return "BAD_REQUEST"
	case fiber.StatusUnauthorized:
		return "UNAUTHORIZED"
	case fiber.StatusForbidden:
		return "FORBIDDEN"
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusConflict:
		return "CONFLICT"
	case fiber.StatusUnprocessableEntity:
		return "UNPROCESSABLE_ENTITY"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	default:
		return "INTERNAL_SERVER_ERROR"
	}
}

// ErrorHandler is the global Fiber error handler. It maps workflow errors
// and record-not-found onto the error taxonomy and returns a consistent
// JSON shape for everything.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"
	codeStr := ""

	var invalid *workflow.InvalidTransitionError
	var conflict *workflow.ConflictError
	switch {
	case errors.As(err, &invalid):
		code = fiber.StatusConflict
		msg = invalid.Error()
		codeStr = "INVALID_TRANSITION"
	case errors.As(err, &conflict):
		code = fiber.StatusConflict
		msg = conflict.Error()
		codeStr = "CONFLICT"
	case errors.Is(err, gorm.ErrRecordNotFound):
		code = fiber.StatusNotFound
		msg = fiber.ErrNotFound.Message
	default:
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			if strings.TrimSpace(e.Message) != "" {
				msg = e.Message
			} else {
				msg = fiber.ErrInternalServerError.Message
				switch code {
				case fiber.StatusBadRequest:
					msg = fiber.ErrBadRequest.Message
				case fiber.StatusUnauthorized:
					msg = fiber.ErrUnauthorized.Message
				case fiber.StatusForbidden:
					msg = fiber.ErrForbidden.Message
				case fiber.StatusNotFound:
					msg = fiber.ErrNotFound.Message
				case fiber.StatusConflict:
					msg = fiber.ErrConflict.Message
				}
			}
		}
	}

	if codeStr == "" {
		codeStr = httpCodeToString(code)
	}
	return c.Status(code).JSON(models.ErrorResponse{
		Code:    codeStr,
		Error:   true,
		Message: msg,
	})
}
