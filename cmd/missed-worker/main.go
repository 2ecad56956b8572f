package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/vaxline/booking-engine/internal/booking"
	"github.com/vaxline/booking-engine/internal/config"
	"github.com/vaxline/booking-engine/internal/db"
	"github.com/vaxline/booking-engine/internal/history"
	redisclient "github.com/vaxline/booking-engine/internal/redis"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("missed-worker starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running missed worker in env=%s interval=%s", cfg.Env, cfg.WorkerInterval)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisCapacityLocker(rdb, cfg.LockTTL)
	svc := booking.NewService(repo, locker, history.LogRecorder{}, nil, cfg.ScheduleTZ)

	// Run once at startup
	runOnce(rootCtx, svc)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Println("shutdown signal received, stopping missed worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc)
		}
	}
}

func runOnce(ctx context.Context, svc *booking.Service) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	if err := svc.MarkMissedAppointments(runCtx); err != nil {
		log.Printf("missed sweep error: %v", err)
		return
	}
	log.Printf("missed sweep complete in %s", time.Since(start))
}
