package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"ops-dashboard-api/internal/cache"
	"ops-dashboard-api/internal/config"
	"ops-dashboard-api/internal/dashboard"
	"ops-dashboard-api/internal/database"
	"ops-dashboard-api/internal/github"
	"ops-dashboard-api/internal/handlers"
	"ops-dashboard-api/internal/notify"
	"ops-dashboard-api/internal/realtime"
	"ops-dashboard-api/internal/routes"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	logger := newLogger(cfg.Log)
	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	// Init database
	database.InitDB(cfg.Database.Path)

	gh := github.NewClient(github.Config{
		Token:   cfg.GitHub.Token,
		BaseURL: cfg.GitHub.BaseURL,
		Timeout: cfg.GitHub.RequestTimeout,
		Logger:  logger,
	})
	if cfg.GitHub.Token == "" {
		logger.Warn("GITHUB_TOKEN is not set; GitHub views will report a config error")
	}

	swr := cache.New(cache.Config{
		StaleFactor:  cfg.Cache.StaleFactor,
		StaleWindow:  cfg.Cache.StaleWindow,
		LowWaterMark: cfg.Cache.LowWaterMark,
		FetchTimeout: cfg.Cache.FetchTimeout,
		Logger:       logger,
	}, gh)

	svc := dashboard.NewService(gh, swr, dashboard.Config{
		Org:           cfg.GitHub.Org,
		Repo:          cfg.GitHub.Repo,
		PipelineRepo:  cfg.GitHub.PipelineRepo,
		ProjectNumber: cfg.GitHub.ProjectNumber,
		Logger:        logger,
	})

	hub := realtime.GetHub()

	if discord := notify.NewDiscord(cfg.Webhook.DiscordWebhookURL); discord.Enabled() {
		handlers.SetStatusNotifier(discord)
		logger.Info("Discord status notifications enabled")
	}
	if cfg.Webhook.GitHubSecret == "" {
		logger.Warn("GITHUB_WEBHOOK_SECRET is not set; webhook signatures are not checked")
	}

	// Setup the routes
	ginRoutes := routes.SetupRoutes(routes.Handlers{
		GitHub:  handlers.NewGitHubHandler(svc, logger),
		Webhook: handlers.NewWebhookHandler(cfg.Webhook.GitHubSecret, hub, svc, logger),
		Events:  handlers.NewEventsHandler(hub, 0),
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      ginRoutes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	logger.Info("Server exited")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.StandardLogger()
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.WithField("level", cfg.Level).Warn("Unknown LOG_LEVEL, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
