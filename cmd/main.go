package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/Dosada05/tournament-rounds/brackets"
	"github.com/Dosada05/tournament-rounds/config"
	"github.com/Dosada05/tournament-rounds/db"
	"github.com/Dosada05/tournament-rounds/handlers"
	"github.com/Dosada05/tournament-rounds/pairing"
	"github.com/Dosada05/tournament-rounds/repositories"
	api "github.com/Dosada05/tournament-rounds/routes"
	"github.com/Dosada05/tournament-rounds/services"
	"github.com/Dosada05/tournament-rounds/standings"
	"github.com/Dosada05/tournament-rounds/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema up to date")

	// Объектное хранилище опционально: без него экспорт снапшотов выключен.
	var uploader storage.FileUploader
	if cfg.HasObjectStorage() {
		uploader, err = storage.NewS3Uploader(storage.S3UploaderConfig{
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			BucketName:      cfg.S3BucketName,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize object storage", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("object storage initialized")
	} else {
		logger.Info("object storage not configured, snapshot export disabled")
	}

	// Инициализация репозиториев
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	adminRepo := repositories.NewPostgresAdminRepository(dbConn)
	txRunner := repositories.NewTxRunner(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	locks := services.NewTournamentLockRegistry()
	calculator := standings.NewCalculator(cfg.Points)
	pairer := pairing.NewEngine(pairing.Config{
		AllowRepeats: cfg.PairingAllowRepeats,
		MaxBacktrack: pairing.DefaultMaxBacktrack,
	})
	bracket := brackets.NewSingleElimination()

	roundService := services.NewRoundService(
		txRunner,
		tournamentRepo,
		playerRepo,
		roundRepo,
		matchRepo,
		calculator,
		pairer,
		bracket,
		locks,
		logger,
	)
	tournamentService := services.NewTournamentService(
		txRunner,
		tournamentRepo,
		playerRepo,
		roundRepo,
		matchRepo,
		roundService,
		calculator,
		locks,
		logger,
	)
	authService := services.NewAuthService(adminRepo, cfg.JWTSecretKey, logger)
	exportService := services.NewExportService(tournamentService, uploader, logger)
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	router := api.SetupRoutes(api.Handlers{
		Auth:       handlers.NewAuthHandler(authService),
		Tournament: handlers.NewTournamentHandler(tournamentService, roundService, exportService),
		Match:      handlers.NewMatchHandler(roundService),
	}, cfg.JWTSecretKey)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		} else {
			logger.Info("server stopped gracefully")
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		} else {
			logger.Info("server shutdown complete")
		}
	}
	logger.Info("application exited")
}
