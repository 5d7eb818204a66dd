package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/studyflow/course-processor/config"
	"github.com/studyflow/course-processor/internal/embedding"
	"github.com/studyflow/course-processor/internal/llm"
	"github.com/studyflow/course-processor/internal/store"
	"github.com/studyflow/course-processor/pkg/logger"
	"github.com/studyflow/course-processor/pkg/worker"
)

func main() {
	log, err := logger.NewLogger(
		logger.WithLevel("info"),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
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

	gemini, err := llm.NewGeminiClient(ctx, &cfg.Gemini, log)
	if err != nil {
		log.Fatal("Failed to init gemini client:", logger.Error(err))
	}
	embedder := embedding.NewGenerator(gemini, log)

	w := worker.NewReembedWorker(&worker.Config{
		RedisAddr:   cfg.Redis.Addr,
		RedisDB:     cfg.Redis.DB,
		Concurrency: 4,
	}, db, embedder, log)

	if err := w.Start(ctx); err != nil {
		log.Fatal("Failed to start worker:", logger.Error(err))
	}
	log.Info("Worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker...")
	w.Stop()
}
