package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dline-edu/prova-backend/internal/config"
	"github.com/dline-edu/prova-backend/internal/database"
	"github.com/dline-edu/prova-backend/internal/handler"
	"github.com/dline-edu/prova-backend/internal/logger"
	"github.com/dline-edu/prova-backend/internal/repository"
	"github.com/dline-edu/prova-backend/internal/router"
	"github.com/dline-edu/prova-backend/internal/service"
	"github.com/dline-edu/prova-backend/internal/storage"
	"github.com/dline-edu/prova-backend/internal/validator"
	"github.com/dline-edu/prova-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Prova Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Connect to MinIO ──────────────────────────────────────────────
	minioClient, err := database.NewMinioClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MinIO")
	}
	blobs := storage.NewMinioStore(minioClient, cfg)
	journal := storage.NewRedisOrphanJournal(rdb)

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	evidenceRepo := repository.NewEvidenceRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService)
	testService := service.NewTestService(testRepo, log)
	scoringService := service.NewScoringService(testRepo, submissionRepo, sessionRepo, userRepo, cfg.AllowRetake, log)
	sessionService := service.NewSessionService(sessionRepo, userRepo, blobs, journal, cfg, log)
	tally := service.NewRedisSwitchTally(rdb)
	proctorService := service.NewProctorService(evidenceRepo, sessionRepo, blobs, journal, tally, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, userService),
		Portal:  handler.NewPortalHandler(testService, scoringService, sessionService),
		Proctor: handler.NewProctorHandler(proctorService),
		Test:    handler.NewTestHandler(testService, scoringService),
		Review:  handler.NewReviewHandler(proctorService, sessionService, authService),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	orphanWorker := worker.NewOrphanWorker(rdb, blobs, evidenceRepo, log)
	go orphanWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the orphan worker and let it requeue its buffer.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
