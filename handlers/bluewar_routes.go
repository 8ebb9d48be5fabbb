// handlers/bluewar_routes.go
package handlers

import (
	"bluewar-ledger/middleware"
	"bluewar-ledger/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBluewarRoutes(app *fiber.App, ingestion *services.IngestionService, matches *services.MatchService, tokenGate fiber.Handler) {
	bluewar := app.Group("/bluewar")

	// 🤖 Bot upload, guarded by X-API-Token
	bluewar.Post("/matches", tokenGate, func(c *fiber.Ctx) error {
		var report services.MatchReport
		if err := c.BodyParser(&report); err != nil {
			return badRequest(c, "invalid JSON", err)
		}

		matchID, err := ingestion.RecordMatch(c.UserContext(), report)
		if err != nil {
			return fail(c, "failed to record match", err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"ok":       true,
			"match_id": matchID,
		})
	})

	// 🔐 Match browser, admins and members only
	bluewar.Get("/matches", middleware.RequireViewer(), func(c *fiber.Ctx) error {
		page, err := matches.ListMatches(c.UserContext(), services.MatchFilter{
			Mode:     c.Query("mode", "all"),
			Status:   c.Query("status", "all"),
			Query:    c.Query("q"),
			Page:     c.QueryInt("page", 1),
			PageSize: c.QueryInt("page_size", services.DefaultPageSize),
		})
		if err != nil {
			return fail(c, "failed to list matches", err)
		}
		return c.JSON(page)
	})

	bluewar.Get("/matches/:id", middleware.RequireViewer(), func(c *fiber.Ctx) error {
		id, err := idParam(c, "id")
		if err != nil {
			return badRequest(c, "invalid match id", err)
		}
		detail, err := matches.GetMatch(c.UserContext(), id)
		if err != nil {
			return fail(c, "failed to load match", err)
		}
		return c.JSON(fiber.Map{
			"match":        detail.Match,
			"winner":       detail.Winner,
			"loser":        detail.Loser,
			"participants": detail.Participants,
			"is_admin":     isAdminViewer(c),
		})
	})
}
