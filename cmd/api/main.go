package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tackroom/saddletrack/internal/config"
	"github.com/tackroom/saddletrack/internal/httpx"
	kafkax "github.com/tackroom/saddletrack/internal/kafka"
	"github.com/tackroom/saddletrack/internal/orders"
	"github.com/tackroom/saddletrack/internal/postgres"
	"github.com/tackroom/saddletrack/internal/redisx"
	"github.com/tackroom/saddletrack/internal/review"
	"github.com/tackroom/saddletrack/internal/serials"
	"github.com/tackroom/saddletrack/internal/shopify"
	syncx "github.com/tackroom/saddletrack/internal/sync"
	"github.com/tackroom/saddletrack/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pSynced := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSynced, 1024)
	pSynced.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)
	pReview := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicReviewRequired, 1024)
	pReview.Start(ctx)
	pSerials := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicSerialsSaved, 1024)
	pSerials.Start(ctx)

	// Repos & services
	orderRepo := &orders.Repo{DB: db}
	sessions := &shopify.SessionStore{DB: db}
	client := shopify.NewClient(cfg.ShopifyAPIVersion)

	engine := &syncx.Engine{
		Fetcher:    client,
		Store:      orderRepo,
		MaxBatches: cfg.SyncMaxBatches,
		PageDelay:  cfg.SyncPageDelay,
	}

	reconciler := &webhook.Reconciler{
		Store:             orderRepo,
		Tags:              client,
		Sessions:          sessions,
		ProducerCancelled: pCancelled,
		ProducerReview:    pReview,
		Service:           cfg.ServiceName,
	}

	serialSvc := &serials.Service{Store: &serials.Repo{DB: db}}

	// Router & handlers
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Repo:           orderRepo,
		Engine:         engine,
		Sessions:       sessions,
		ProducerSynced: pSynced,
		Redis:          rdb,
		Service:        cfg.ServiceName,
		SyncOpts: syncx.Options{
			PageSize:         cfg.SyncPageSize,
			OnlySaddleOrders: true,
			Since:            cfg.SyncSince,
		},
	}
	oh.Register(router)

	sh := &httpx.SerialsHandler{Serials: serialSvc, Producer: pSerials, Service: cfg.ServiceName}
	sh.Register(router)

	wh := &httpx.WebhooksHandler{
		Reconciler: reconciler,
		Dedup:      &redisx.Dedup{Client: rdb, TTL: redisx.TTLWebhookDedup},
		Secret:     cfg.ShopifyAPISecret,
	}
	wh.Register(router)

	rh := &httpx.ReviewsHandler{Repo: &review.Repo{DB: db}}
	rh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range []*kafkax.Producer{pSynced, pCancelled, pReview, pSerials} {
		p.Close()
	}
	cancel()
	for _, p := range []*kafkax.Producer{pSynced, pCancelled, pReview, pSerials} {
		p.WaitClosed()
	}
}
