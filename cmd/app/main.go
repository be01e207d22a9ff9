package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"questbot/internal/ai"
	"questbot/internal/api"
	"questbot/internal/calendar"
	"questbot/internal/dispatch"
	"questbot/internal/middleware"
	"questbot/internal/reminder"
	"questbot/internal/repository"
	"questbot/internal/scheduler"
	"questbot/internal/service"
	"questbot/internal/telegram"
	"questbot/pkg/auth"
	"questbot/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		zapLogger.Fatal("Application stopped with error", zap.Error(err))
	}
	zapLogger.Info("Application stopped")
}

func run(ctx context.Context, cfg *Config) error {
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	if err := repo.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	events := service.NewEventSink(repo, cfg.EventBuffer)
	defer events.Close()

	userService := service.NewUserService(repo, events)
	questService := service.NewQuestService(repo, ai.New(cfg.OpenAI), events)

	blackout := calendar.NewBlackoutChecker(
		calendar.NewHebcalClient(cfg.Calendar.BaseURL, cfg.Calendar.Timeout),
		cfg.Calendar.Enabled,
	)

	bot, err := telegram.NewClient(cfg.Telegram)
	if err != nil {
		return err
	}

	hub := dispatch.NewHub()
	engine := reminder.NewEngine(repo, repo, blackout, dispatch.NewDispatcher(bot, hub), events, cfg.Reminder.Engine())

	handler := telegram.NewHandler(telegram.Deps{
		Sender:    bot,
		Users:     userService,
		Quests:    questService,
		Reminders: engine,
		Calendar:  blackout,
		Feedback:  repo,
		Sessions:  telegram.NewSessions(cfg.SessionTTL),
		AdminIDs:  cfg.Telegram.AdminIDs,
	})

	router := api.NewRouter(api.Deps{
		Users:         userService,
		Quests:        questService,
		Feedback:      repo,
		Hub:           hub,
		Auth:          auth.NewTelegramAuth(cfg.Telegram.BotToken, cfg.Server.DebugAuth),
		Authorization: middleware.NewAuthorization(cfg.Telegram.AdminIDs),
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ticker := scheduler.New(cfg.Reminder.Interval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		events.Run(gctx)
		return nil
	})

	if err := ticker.Start(gctx, func(ctx context.Context, now time.Time) {
		engine.Tick(ctx, now)
	}); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer ticker.Stop()

	g.Go(func() error {
		return bot.Run(gctx, handler.HandleUpdate)
	})

	g.Go(func() error {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
