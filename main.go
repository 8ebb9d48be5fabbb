package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bluewar-ledger/auth"
	"bluewar-ledger/config"
	"bluewar-ledger/database"
	"bluewar-ledger/handlers"
	"bluewar-ledger/services"
	"bluewar-ledger/workers"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const usage = `usage:
  bluewar-ledger                      run the HTTP server
  bluewar-ledger import-seed          apply the blue_records seed once and exit
  bluewar-ledger promote-admin <id>   grant admin to a member login id and exit`

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("❌ logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg, logger)
	if err != nil {
		logger.Fatal("❌ database", zap.Error(err))
	}
	if _, err := database.Prepare(ctx, db, logger); err != nil {
		logger.Fatal("❌ schema preparation failed", zap.Error(err))
	}

	members := services.NewMemberService(db, cfg.ConfiguredAdminDiscordIDs(), logger)

	args := os.Args[1:]
	if len(args) > 0 {
		if err := runCommand(ctx, cfg, db, members, logger, args); err != nil {
			logger.Fatal("❌ command failed", zap.String("command", args[0]), zap.Error(err))
		}
		return
	}

	seed, err := newSeedService(ctx, cfg, db, logger)
	if err != nil {
		logger.Fatal("❌ seed source", zap.Error(err))
	}
	// A malformed seed stops startup; a missing one does not.
	if _, err := seed.EnsureBlueRecordsSeed(ctx); err != nil {
		logger.Fatal("❌ blue_records seed import failed", zap.Error(err))
	}
	if n, err := members.BootstrapAdmins(ctx); err != nil {
		logger.Error("admin bootstrap failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("👑 bootstrapped admin members", zap.Int("count", n))
	}

	app := handlers.NewApp(handlers.Deps{
		Config:    cfg,
		DB:        db,
		Log:       logger,
		Sessions:  auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL),
		Ingestion: services.NewIngestionService(db, logger),
		Ranking:   services.NewRankingService(db, logger),
		Matches:   services.NewMatchService(db),
		Users:     services.NewUserService(db),
		Members:   members,
		Seed:      seed,
	})

	if err := workers.NewSeedWatcher(seed, cfg.Seed.RecheckInterval, logger).Start(ctx); err != nil {
		logger.Error("seed watcher not started", zap.Error(err))
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	logger.Info("✅ server running",
		zap.String("port", cfg.Port),
		zap.String("driver", db.Dialector.Name()),
		zap.Bool("ingest_auth", cfg.ExpectedAPIToken() != ""),
		zap.Strings("cors_origins", cfg.AllowedOrigins),
	)

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func runCommand(ctx context.Context, cfg config.Config, db *gorm.DB, members *services.MemberService, logger *zap.Logger, args []string) error {
	switch args[0] {
	case "import-seed":
		seed, err := newSeedService(ctx, cfg, db, logger)
		if err != nil {
			return err
		}
		res, err := seed.EnsureBlueRecordsSeed(ctx)
		if err != nil {
			return err
		}
		logger.Info("seed import finished",
			zap.String("source", res.Source),
			zap.Bool("found", res.Found),
			zap.Bool("applied", res.Applied),
			zap.Int("created", res.Created),
			zap.Int("updated", res.Updated),
			zap.Int("skipped", res.Skipped),
		)
		return nil
	case "promote-admin":
		if len(args) != 2 {
			return errors.New(usage)
		}
		m, err := members.Promote(ctx, args[1])
		if err != nil {
			return err
		}
		logger.Info("👑 member promoted", zap.String("discord_id", m.DiscordID))
		return nil
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func newSeedService(ctx context.Context, cfg config.Config, db *gorm.DB, logger *zap.Logger) (*services.SeedService, error) {
	source, err := services.NewSeedSource(ctx, cfg.Seed)
	if err != nil {
		return nil, err
	}
	return services.NewSeedService(db, source, logger), nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	return zcfg.Build()
}
