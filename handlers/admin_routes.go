// handlers/admin_routes.go
package handlers

import (
	"bluewar-ledger/middleware"
	"bluewar-ledger/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAdminRoutes(app *fiber.App, users *services.UserService, members *services.MemberService, seed *services.SeedService) {
	admin := app.Group("/admin", middleware.RequireAdmin())

	admin.Get("/dashboard", func(c *fiber.Ctx) error {
		d, err := users.Dashboard(c.UserContext())
		if err != nil {
			return fail(c, "failed to load dashboard", err)
		}
		return c.JSON(d)
	})

	admin.Get("/users", func(c *fiber.Ctx) error {
		list, err := users.SearchUsers(c.UserContext(), c.Query("q"))
		if err != nil {
			return fail(c, "search failed", err)
		}
		return c.JSON(list)
	})

	admin.Post("/users", func(c *fiber.Ctx) error {
		var req services.CreateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		u, err := users.CreateUser(c.UserContext(), req)
		if err != nil {
			return fail(c, "failed to create user", err)
		}
		return c.Status(fiber.StatusCreated).JSON(u)
	})

	admin.Get("/users/:id", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return badRequest(c, "invalid user id", err)
		}
		u, err := users.GetUser(c.UserContext(), id)
		if err != nil {
			return fail(c, "failed to load user", err)
		}
		return c.JSON(u)
	})

	admin.Patch("/users/:id", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return badRequest(c, "invalid user id", err)
		}
		var req services.UpdateUserRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		u, err := users.UpdateUser(c.UserContext(), id, req)
		if err != nil {
			return fail(c, "failed to update user", err)
		}
		return c.JSON(u)
	})

	admin.Put("/users/:id/stats", func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return badRequest(c, "invalid user id", err)
		}
		var req services.UpdateStatsRequest
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid JSON", err)
		}
		u, err := users.UpdateStats(c.UserContext(), id, req)
		if err != nil {
			return fail(c, "failed to update stats", err)
		}
		return c.JSON(u)
	})

	admin.Post("/members/:discord_id/promote", func(c *fiber.Ctx) error {
		m, err := members.Promote(c.UserContext(), c.Params("discord_id"))
		if err != nil {
			return fail(c, "failed to promote member", err)
		}
		return c.JSON(fiber.Map{"ok": true, "discord_id": m.DiscordID, "is_admin": m.IsAdmin})
	})

	// Forces a seed check without waiting for the watcher.
	admin.Post("/seed/recheck", func(c *fiber.Ctx) error {
		res, err := seed.EnsureBlueRecordsSeed(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "seed import failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(res)
	})
}
