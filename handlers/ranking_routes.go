package handlers

import (
	"bluewar-ledger/auth"
	"bluewar-ledger/middleware"
	"bluewar-ledger/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRankingRoutes(app *fiber.App, ranking *services.RankingService) {
	app.Get("/ranking", middleware.RequireViewer(), func(c *fiber.Ctx) error {
		mode := services.ParseRankingMode(c.Query("mode", "pvp"))
		limit := services.ParseRankingLimit(c.Query("limit", "50"))

		rows, err := ranking.ComputeRanking(c.UserContext(), mode, limit)
		if err != nil {
			return fail(c, "failed to compute ranking", err)
		}
		return c.JSON(fiber.Map{
			"mode":   mode,
			"limit":  limit,
			"viewer": auth.RoleView(middleware.ViewerFrom(c)),
			"rows":   rows,
		})
	})
}

func isAdminViewer(c *fiber.Ctx) bool {
	return auth.IsAdmin(middleware.ViewerFrom(c))
}
