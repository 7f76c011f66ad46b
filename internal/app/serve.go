package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"draftly/internal/ai"
	"draftly/internal/gmail"
	"draftly/internal/handler"
	"draftly/internal/logger"
	"draftly/internal/retry"
	"draftly/internal/router"
	"draftly/internal/service"
	"draftly/internal/sse"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serves the reply draft API, Google login and the live event stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		appLogger := logger.New(logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))

		store, err := openStorage(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer store.close()

		authService := service.NewAuthService(store.users, appLogger)

		oauthConfig := gmail.OAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BaseURL+"/auth/google/callback")
		mailClient := gmail.NewUserMailClient(store.users, oauthConfig, appLogger)

		completion := ai.NewAIClient(ai.Options{
			Provider: cfg.AIProvider,
			APIKey:   cfg.AIKey,
			Model:    cfg.AIModel,
			BaseURL:  cfg.AIBaseURL,
		}, appLogger)

		sseManager := sse.NewSSEManager(appLogger)
		defer sseManager.Close()

		draftService := service.NewDraftService(
			store.drafts,
			mailClient,
			completion,
			retry.NewSender(retry.DefaultPolicy, appLogger),
			sseManager,
			cfg.SentExemplarFetch,
			appLogger,
		)
		inboxService := service.NewInboxService(mailClient, cfg.InboxFetch, appLogger)

		if cfg.InboxPollInterval > 0 {
			watchJob := sse.NewInboxWatchJob(inboxService, sseManager, cfg.InboxPollInterval, appLogger)
			go watchJob.Start(ctx)
		}

		e := echo.New()
		e.HideBanner = true

		// Middleware
		e.Use(middleware.Logger())
		e.Use(middleware.Recover())
		e.Use(middleware.CORS())

		sessionStore := handler.NewSessionStore([]byte(cfg.SessionSecret), cfg.IsProduction())
		authHandler := handler.NewAuthHandler(authService, sessionStore, cfg, e.Logger)
		draftHandler := handler.NewDraftHandler(draftService, authHandler, e.Logger)
		inboxHandler := handler.NewInboxHandler(inboxService, authHandler, sseManager, e.Logger)

		router.SetupRoutes(e, authHandler, draftHandler, inboxHandler)

		errCh := make(chan error, 1)
		go func() {
			appLogger.Info("Starting server on port", cfg.Port)
			errCh <- e.Start(":" + cfg.Port)
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server stopped: %w", err)
		case <-ctx.Done():
			appLogger.Info("Shutting down server")
			// open event streams only end once their channels close
			sseManager.Close()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		}
	},
}
