package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/LastNyx/JAVault/internal/api"
	"github.com/LastNyx/JAVault/internal/config"
	"github.com/LastNyx/JAVault/internal/covers"
	"github.com/LastNyx/JAVault/internal/db"
	"github.com/LastNyx/JAVault/internal/jobs"
	"github.com/LastNyx/JAVault/internal/library"
	"github.com/LastNyx/JAVault/internal/repository"
	"github.com/LastNyx/JAVault/internal/scheduler"
)

func main() {
	log.Println("JAVault starting...")

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	coverStore, err := covers.NewStore(cfg.CoversDir())
	if err != nil {
		log.Fatalf("covers dir init failed: %v", err)
	}

	videoRepo := repository.NewVideoRepository(database.DB)
	refRepo := repository.NewReferenceRepository(database.DB)
	linkRepo := repository.NewStreamingLinkRepository(database.DB)

	queue := jobs.NewQueue(cfg.RedisAddr)
	queue.RegisterHandler(jobs.TaskCoverRefetch, jobs.NewCoverRefetchHandler(videoRepo, coverStore))
	go func() {
		if err := queue.Start(); err != nil {
			log.Printf("job queue unavailable: %v", err)
		}
	}()
	defer queue.Stop()

	sweeper := scheduler.NewSweeper(videoRepo, coverStore)
	if err := sweeper.Start(cfg.SweepSchedule); err != nil {
		log.Fatalf("sweeper start failed: %v", err)
	}
	defer sweeper.Stop()

	wsHub := api.NewWSHub()
	svc := library.NewService(videoRepo, refRepo, linkRepo, coverStore, queue, wsHub)
	srv := api.NewServer(cfg, svc, wsHub)

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}
