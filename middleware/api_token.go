// middleware/api_token.go
package middleware

import (
	"bluewar-ledger/auth"
	"bluewar-ledger/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const APITokenHeader = "X-API-Token"

// APITokenMiddleware guards bot uploads with the shared X-API-Token secret.
// An empty expected token disables the check (open mode).
func APITokenMiddleware(expectedToken string, log *zap.Logger) fiber.Handler {
	if expectedToken == "" {
		log.Warn("⚠️ YUME_API_TOKEN is not set; match ingestion accepts unauthenticated requests")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		token := c.Get(APITokenHeader)
		if token == "" || !auth.SecretsEqual(token, expectedToken) {
			metrics.IngestFailed("unauthorized")
			log.Warn("🚫 invalid API token",
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
				zap.Bool("present", token != ""),
			)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid API token",
			})
		}
		return c.Next()
	}
}
