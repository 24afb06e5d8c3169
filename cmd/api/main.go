package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/freshcrate/go-drop-orders/internal/config"
	"github.com/freshcrate/go-drop-orders/internal/drops"
	"github.com/freshcrate/go-drop-orders/internal/httpx"
	kafkax "github.com/freshcrate/go-drop-orders/internal/kafka"
	"github.com/freshcrate/go-drop-orders/internal/ledger"
	"github.com/freshcrate/go-drop-orders/internal/orders"
	"github.com/freshcrate/go-drop-orders/internal/postgres"
	"github.com/freshcrate/go-drop-orders/internal/ratelimit"
	"github.com/freshcrate/go-drop-orders/internal/redisx"
	"github.com/freshcrate/go-drop-orders/internal/waitlist"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalw("db connect", "error", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, one per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pStatus := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicStatusChanged, 1024)
	pStatus.Start(ctx)
	pReminder := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicDeliveryReminder, 1024)
	pReminder.Start(ctx)

	// Core wiring
	ledgerRepo := &ledger.Repo{DB: db}
	waitlistStore := &waitlist.PgStore{DB: db, Ledger: ledgerRepo}
	orderSvc := &orders.Service{
		Store: &orders.Repo{DB: db},
		Producers: orders.Producers{
			Created:  pCreated,
			Status:   pStatus,
			Reminder: pReminder,
		},
		ServiceName: cfg.ServiceName,
		Log:         log,
	}
	converter := &drops.Converter{
		Drops:    &drops.Repo{DB: db},
		Waitlist: waitlistStore,
		Orders:   orderSvc,
		Log:      log,
	}

	router := httpx.NewRouter()
	h := &httpx.Handlers{
		Registrar:  &waitlist.Registrar{Store: waitlistStore},
		Orders:     orderSvc,
		OrderStore: orderSvc.Store,
		Ledger:     ledgerRepo,
		Converter:  converter,
		Redis:      rdb,
		Limiter:    ratelimit.New(),
		Policies: httpx.Policies{
			Checkout: ratelimit.Policy{Name: "checkout", Window: cfg.CheckoutWindow, Max: cfg.CheckoutMax},
			Browse:   ratelimit.Policy{Name: "browse", Window: cfg.BrowseWindow, Max: cfg.BrowseMax},
		},
		Log: log,
	}
	h.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Infow("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("listen", "error", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	// close inboxes so the producer loops flush and exit
	pCreated.Close()
	pStatus.Close()
	pReminder.Close()
	cancel()
	pCreated.WaitClosed()
	pStatus.WaitClosed()
	pReminder.WaitClosed()
}
