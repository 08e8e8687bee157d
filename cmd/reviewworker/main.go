package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tackroom/saddletrack/internal/config"
	kafkax "github.com/tackroom/saddletrack/internal/kafka"
	"github.com/tackroom/saddletrack/internal/orders"
	"github.com/tackroom/saddletrack/internal/postgres"
	"github.com/tackroom/saddletrack/internal/redisx"
	"github.com/tackroom/saddletrack/internal/review"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &review.Service{
		Repo:        &review.Repo{DB: db},
		Dedup:       &redisx.Dedup{Client: rdb, TTL: redisx.TTLEventDedup},
		ServiceName: cfg.ServiceName + "-reviewworker",
	}

	group := getenv("REVIEW_GROUP", "review-svc")
	workers := mustAtoi(os.Getenv("REVIEW_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicReviewRequired, workers)

	go func() {
		log.Printf("review consumer started: group=%s topic=%s workers=%d", group, orders.TopicReviewRequired, workers)
		if err := cons.Start(ctx, svc.HandleReviewRequired); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
