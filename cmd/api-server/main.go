package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/vaxline/booking-engine/internal/api"
	"github.com/vaxline/booking-engine/internal/booking"
	"github.com/vaxline/booking-engine/internal/config"
	"github.com/vaxline/booking-engine/internal/db"
	"github.com/vaxline/booking-engine/internal/history"
	"github.com/vaxline/booking-engine/internal/metrics"
	redisclient "github.com/vaxline/booking-engine/internal/redis"
)

const version = "0.3.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s tz=%s window_days=%d",
		cfg.Env, cfg.HTTPPort, cfg.ScheduleTZ, cfg.WindowDays)

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
	log.Println("connected to Redis")

	var recorder history.Recorder
	if len(cfg.KafkaBrokers) > 0 {
		kr := history.NewKafkaRecorder(cfg.KafkaBrokers, cfg.HistoryTopic)
		defer func() {
			if err := kr.Close(); err != nil {
				log.Printf("error closing history writer: %v", err)
			}
		}()
		recorder = kr
		log.Printf("vaccination history goes to kafka topic %q", cfg.HistoryTopic)
	} else {
		recorder = history.LogRecorder{}
		log.Println("no kafka brokers configured, vaccination history goes to the log")
	}

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisCapacityLocker(rdb, cfg.LockTTL)
	m := metrics.NewBookingMetrics(nil)
	svc := booking.NewService(repo, locker, recorder, m, cfg.ScheduleTZ)
	calc := booking.NewAvailabilityCalculator(repo, cfg.ScheduleTZ)

	router := api.NewRouter(api.RouterConfig{
		Service:      svc,
		Availability: calc,
		PgPool:       pgPool,
		Redis:        rdb,
		AuthSecret:   cfg.AuthSecret,
		WindowDays:   cfg.WindowDays,
		Env:          cfg.Env,
		Version:      version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Println("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}

	log.Println("api-server stopped")
}
