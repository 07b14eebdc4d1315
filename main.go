package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vladimiradmaev/therapy-overrides/internal/bot"
	"github.com/vladimiradmaev/therapy-overrides/internal/bot/handlers"
	"github.com/vladimiradmaev/therapy-overrides/internal/config"
	"github.com/vladimiradmaev/therapy-overrides/internal/database"
	"github.com/vladimiradmaev/therapy-overrides/internal/domain"
	"github.com/vladimiradmaev/therapy-overrides/internal/interfaces"
	"github.com/vladimiradmaev/therapy-overrides/internal/logger"
	"github.com/vladimiradmaev/therapy-overrides/internal/repository"
	"github.com/vladimiradmaev/therapy-overrides/internal/services"
	"github.com/vladimiradmaev/therapy-overrides/internal/state"
)

// stateStore is what the bot needs from a state backend
type stateStore interface {
	state.StateManager
	interfaces.AnchorStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "error", err)
	}

	if err := logger.InitWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	}); err != nil {
		logger.Fatal("Failed to initialize logger", "error", err)
	}
	defer logger.Close()

	logger.Info("Starting therapy overrides bot...")
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	var histories interfaces.HistoryRepository = repository.NewGormHistoryRepository(db)
	if cfg.Storage.Driver == config.StorageSQLite {
		sqliteDB, err := database.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			logger.Fatal("Failed to open SQLite store", "error", err)
		}
		defer sqliteDB.Close()
		histories = repository.NewSQLiteHistoryRepository(sqliteDB)
	}
	logger.Info("History storage selected", "driver", cfg.Storage.Driver)

	var states stateStore = state.NewManager()
	if cfg.Redis.Enabled() {
		redisManager, err := state.NewRedisManager(cfg.Redis.Host, cfg.Redis.Port)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", "error", err)
		}
		defer redisManager.Close()
		states = redisManager
		logger.Info("Using Redis state store", "host", cfg.Redis.Host)
	}

	// Initialize services
	userService := services.NewUserService(repository.NewUserRepository(db))
	scheduleService := services.NewScheduleService(db, cfg.Overrides.TimeZone)
	overrideService := services.NewOverrideService(
		histories,
		repository.NewPresetRepository(db),
		states,
		scheduleService,
		services.OverrideServiceConfig{RelevantTimeWindow: cfg.Overrides.RelevantTimeWindow},
	)
	logger.Info("Services initialized successfully")

	var telegramBot domain.BotService
	telegramBot, err = bot.NewBot(cfg.TelegramToken, handlers.Dependencies{
		UserService: userService,
		ScheduleSvc: scheduleService,
		OverrideSvc: overrideService,
	}, states)
	if err != nil {
		logger.Fatal("Failed to create bot", "error", err)
	}

	go func() {
		<-ctx.Done()
		telegramBot.Stop()
	}()

	logger.Info("Bot is running. Press Ctrl+C to stop.")
	if err := telegramBot.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("Bot stopped with error", "error", err)
	}
}
