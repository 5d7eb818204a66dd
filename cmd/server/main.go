package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/studyflow/course-processor/api/handlers"
	"github.com/studyflow/course-processor/api/middleware"
	"github.com/studyflow/course-processor/api/routes"
	"github.com/studyflow/course-processor/config"
	"github.com/studyflow/course-processor/internal/embedding"
	"github.com/studyflow/course-processor/internal/errs"
	"github.com/studyflow/course-processor/internal/extract"
	"github.com/studyflow/course-processor/internal/ingest"
	"github.com/studyflow/course-processor/internal/llm"
	"github.com/studyflow/course-processor/internal/pdf"
	"github.com/studyflow/course-processor/internal/quota"
	"github.com/studyflow/course-processor/internal/retrieval"
	"github.com/studyflow/course-processor/internal/store"
	"github.com/studyflow/course-processor/internal/validator"
	"github.com/studyflow/course-processor/pkg/logger"
	"github.com/studyflow/course-processor/pkg/queue"
	miniostorage "github.com/studyflow/course-processor/pkg/storage/minio"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg := config.Get()
	ctx := context.Background()

	db, err := store.New(cfg.Postgres.URL)
	if err != nil {
		log.Fatal("Failed to connect to postgres:", logger.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(ctx, cfg.Gemini.EmbedDimension); err != nil {
		log.Fatal("Failed to run migrations:", logger.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	defer rdb.Close()

	files, err := miniostorage.NewClient(&cfg.Minio, log)
	if err != nil {
		log.Fatal("Failed to init minio storage:", logger.Error(err))
	}

	gemini, err := llm.NewGeminiClient(ctx, &cfg.Gemini, log)
	if err != nil {
		log.Fatal("Failed to init gemini client:", logger.Error(err))
	}

	embedder := embedding.NewGenerator(gemini, log)
	textExtractor := pdf.NewExtractor(log)
	itemExtractor := extract.NewExtractor(gemini, log)

	dailyQuota := quota.NewDailyQuota(rdb, cfg.Limits.DailyQuotaFree, cfg.Limits.DailyQuotaPaid, log)
	window := quota.NewSlidingWindow(rdb, cfg.Limits.WindowSize, log)

	tasks := queue.NewAsynqQueue(&queue.Config{
		RedisAddr: cfg.Redis.Addr,
		RedisDB:   cfg.Redis.DB,
	})
	defer tasks.Close()

	orchestrator := ingest.NewOrchestrator(
		validator.NewFileValidator(cfg.Limits.MaxFileSize),
		dailyQuota,
		db,
		db,
		textExtractor,
		itemExtractor,
		embedder,
		files,
		errs.NewRedactor(cfg.Gemini.APIKey),
		log,
	)
	engine := retrieval.NewEngine(db, embedder, log)

	h := handlers.NewHandlers(orchestrator, engine, db, files, tasks, cfg.Limits.MaxFileSize, log)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, window, middleware.RateLimitConfig{
		AnonLimit: cfg.Limits.WindowAnon,
		AuthLimit: cfg.Limits.WindowAuth,
	}, log)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: r,
	}

	go func() {
		log.Info("Server starting", logger.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error:", logger.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown:", logger.Error(err))
	}
}
