// config/config.go
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is built once at startup and handed to every component that needs it.
// Nothing mutates it after Load returns.
type Config struct {
	Port     string `env:"PORT" envDefault:"5200"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseURL is a postgres DSN. When empty the service runs on SQLitePath.
	DatabaseURL string `env:"DATABASE_URL"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"yume_admin.db"`

	// Bot upload token (X-API-Token). Both empty = open mode, no check.
	APIToken       string `env:"YUME_API_TOKEN"`
	LegacyAPIToken string `env:"YUME_ADMIN_API_TOKEN"`

	SessionSecret string        `env:"YUME_SESSION_SECRET" envDefault:"yume-admin-session-secret-change-me"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	// name:password pairs, e.g. "siho:pw1,mezo:pw2"
	AdminUsers              map[string]string `env:"YUME_ADMIN_USERS" envSeparator:"," envKeyValSeparator:":"`
	BootstrapAdminDiscordID string            `env:"YUME_BOOTSTRAP_ADMIN_DISCORD_ID"`
	AdminDiscordIDs         []string          `env:"YUME_ADMIN_DISCORD_IDS" envSeparator:","`
	InviteURL               string            `env:"YUME_INVITE_URL"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	Seed SeedConfig
}

// SeedConfig locates the blue_records baseline file.
type SeedConfig struct {
	Path            string        `env:"SEED_PATH" envDefault:"app/seed/blue_records.json"`
	URL             string        `env:"SEED_URL"`
	ServiceToken    string        `env:"SEED_SERVICE_TOKEN"`
	S3Bucket        string        `env:"SEED_S3_BUCKET"`
	S3Key           string        `env:"SEED_S3_KEY"`
	AccountID       string        `env:"CLOUDFLARE_ACCOUNT_ID"`
	AccessKeyID     string        `env:"R2_ACCESS_KEY_ID"`
	AccessKeySecret string        `env:"R2_ACCESS_KEY_SECRET"`
	RecheckInterval time.Duration `env:"SEED_RECHECK_INTERVAL" envDefault:"5m"`
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading environment variables directly")
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.Seed.RecheckInterval < 0 {
		return fmt.Errorf("SEED_RECHECK_INTERVAL must not be negative, got %s", c.Seed.RecheckInterval)
	}
	if (c.Seed.S3Bucket == "") != (c.Seed.S3Key == "") {
		return fmt.Errorf("SEED_S3_BUCKET and SEED_S3_KEY must be set together")
	}
	return nil
}

// ExpectedAPIToken returns the configured upload secret, or "" when the
// ingestion endpoint runs without authentication.
// A value made only of spaces still counts as configured.
func (c Config) ExpectedAPIToken() string {
	if c.APIToken != "" {
		return c.APIToken
	}
	return c.LegacyAPIToken
}

// AdminPassword looks up a configured admin credential.
func (c Config) AdminPassword(username string) (string, bool) {
	pw, ok := c.AdminUsers[username]
	return pw, ok
}

// ConfiguredAdminDiscordIDs merges the bootstrap id with the admin id list.
func (c Config) ConfiguredAdminDiscordIDs() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(c.BootstrapAdminDiscordID)
	for _, id := range c.AdminDiscordIDs {
		add(id)
	}
	return out
}

// UsesPostgres reports whether DatabaseURL selects the postgres driver.
func (c Config) UsesPostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}
