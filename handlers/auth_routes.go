package handlers

import (
	"errors"
	"strings"
	"time"

	"bluewar-ledger/auth"
	"bluewar-ledger/config"
	"bluewar-ledger/middleware"
	"bluewar-ledger/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type memberLoginRequest struct {
	DiscordID string `json:"discord_id"`
	Password  string `json:"password"`
}

func setSession(c *fiber.Ctx, sessions *auth.SessionManager, v auth.Viewer) error {
	token, err := sessions.Issue(v)
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     auth.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(sessions.TTL()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return nil
}

func SetupAuthRoutes(app *fiber.App, cfg config.Config, members *services.MemberService, sessions *auth.SessionManager, log *zap.Logger) {
	app.Post("/auth/login", func(c *fiber.Ctx) error {
		var req adminLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		username := strings.TrimSpace(req.Username)
		expected, ok := cfg.AdminPassword(username)
		if !ok || !auth.SecretsEqual(req.Password, expected) {
			log.Warn("🚫 admin login failed", zap.String("username", username), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid username or password",
			})
		}

		viewer := auth.Admin{Username: username}
		if err := setSession(c, sessions, viewer); err != nil {
			return fail(c, "failed to issue session", err)
		}
		return c.JSON(fiber.Map{"ok": true, "viewer": auth.RoleView(viewer)})
	})

	app.Post("/auth/logout", func(c *fiber.Ctx) error {
		c.ClearCookie(auth.SessionCookieName)
		return c.JSON(fiber.Map{"ok": true})
	})

	member := app.Group("/member")

	member.Post("/register", func(c *fiber.Ctx) error {
		var req services.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		m, err := members.Register(c.UserContext(), req)
		if err != nil {
			return fail(c, "registration failed", err)
		}

		viewer := auth.Member{MemberID: m.ID, DiscordID: m.DiscordID, Nickname: m.Nickname, IsAdmin: m.IsAdmin}
		if err := setSession(c, sessions, viewer); err != nil {
			return fail(c, "failed to issue session", err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "viewer": auth.RoleView(viewer)})
	})

	member.Post("/login", func(c *fiber.Ctx) error {
		var req memberLoginRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		m, err := members.Authenticate(c.UserContext(), req.DiscordID, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) || errors.Is(err, services.ErrMemberInactive) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid id or password",
				})
			}
			return fail(c, "login failed", err)
		}

		viewer := auth.Member{MemberID: m.ID, DiscordID: m.DiscordID, Nickname: m.Nickname, IsAdmin: m.IsAdmin}
		if err := setSession(c, sessions, viewer); err != nil {
			return fail(c, "failed to issue session", err)
		}
		return c.JSON(fiber.Map{"ok": true, "viewer": auth.RoleView(viewer)})
	})

	member.Get("/me", middleware.RequireViewer(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"viewer":     auth.RoleView(middleware.ViewerFrom(c)),
			"invite_url": cfg.InviteURL,
		})
	})
}
