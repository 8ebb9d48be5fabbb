// middleware/auth.go
package middleware

import (
	"strings"

	"bluewar-ledger/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type contextKey string

const viewerContextKey contextKey = "viewer"

// ResolveViewer reads the session cookie (or a Bearer token) and stores the
// resulting auth.Viewer in c.Locals. Bad or expired sessions resolve to Anonymous.
func ResolveViewer(sessions *auth.SessionManager, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var viewer auth.Viewer = auth.Anonymous{}

		raw := c.Cookies(auth.SessionCookieName)
		if raw == "" {
			if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
				raw = strings.TrimPrefix(h, "Bearer ")
			}
		}
		if raw != "" {
			v, err := sessions.Parse(raw)
			if err != nil {
				log.Debug("discarding session", zap.String("path", c.Path()), zap.Error(err))
			} else {
				viewer = v
			}
		}

		c.Locals(viewerContextKey, viewer)
		return c.Next()
	}
}

// ViewerFrom returns the viewer stored by ResolveViewer, or Anonymous.
func ViewerFrom(c *fiber.Ctx) auth.Viewer {
	if v, ok := c.Locals(viewerContextKey).(auth.Viewer); ok && v != nil {
		return v
	}
	return auth.Anonymous{}
}

// RequireViewer admits admins and members.
func RequireViewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !auth.HasAccess(ViewerFrom(c)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "login required",
			})
		}
		return c.Next()
	}
}

// RequireAdmin admits config admins and members flagged is_admin.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		v := ViewerFrom(c)
		if auth.IsAdmin(v) {
			return c.Next()
		}
		if auth.HasAccess(v) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin privileges required",
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "login required",
		})
	}
}
