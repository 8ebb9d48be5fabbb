package handlers

import (
	"errors"
	"strings"

	"bluewar-ledger/auth"
	"bluewar-ledger/config"
	"bluewar-ledger/metrics"
	"bluewar-ledger/middleware"
	"bluewar-ledger/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs. main builds it once.
type Deps struct {
	Config    config.Config
	DB        *gorm.DB
	Log       *zap.Logger
	Sessions  *auth.SessionManager
	Ingestion *services.IngestionService
	Ranking   *services.RankingService
	Matches   *services.MatchService
	Users     *services.UserService
	Members   *services.MemberService
	Seed      *services.SeedService
}

// NewApp builds the fiber app with middleware and every route registered.
func NewApp(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "bluewar-ledger",
		BodyLimit:    4 * 1024 * 1024, // review logs can be long
		UnescapePath: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger(d.Log))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(d.Config.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-API-Token",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	app.Use(middleware.ResolveViewer(d.Sessions, d.Log))

	SetupHealthRoutes(app, d.DB)
	SetupBluewarRoutes(app, d.Ingestion, d.Matches, middleware.APITokenMiddleware(d.Config.ExpectedAPIToken(), d.Log))
	SetupRankingRoutes(app, d.Ranking)
	SetupAuthRoutes(app, d.Config, d.Members, d.Sessions, d.Log)
	SetupAdminRoutes(app, d.Users, d.Members, d.Seed)

	app.Get("/metrics", metrics.Handler())
	return app
}
