package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/freshcrate/go-drop-orders/internal/config"
	kafkax "github.com/freshcrate/go-drop-orders/internal/kafka"
	"github.com/freshcrate/go-drop-orders/internal/notify"
	"github.com/freshcrate/go-drop-orders/internal/orders"
	"github.com/freshcrate/go-drop-orders/internal/postgres"
	"github.com/freshcrate/go-drop-orders/internal/redisx"
)

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

	// DB (push subscriptions, courier directory)
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalw("db connect", "error", err)
	}
	defer db.Close()

	// Redis (event dedup)
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Channel senders; unconfigured channels stay nil and get skipped.
	d := &notify.Dispatcher{
		Subs:        &notify.PgSubscriptions{DB: db},
		StaffTarget: cfg.StaffChatID,
		Timeout:     cfg.SendTimeout,
		Log:         log,
	}
	if cfg.SMSAPIURL != "" {
		d.SMS = notify.NewSMSSender(cfg.SMSAPIURL, cfg.SMSAPIToken)
	}
	if cfg.SMTPAddr != "" {
		d.Email = notify.NewEmailSender(cfg.SMTPAddr, cfg.SMTPFrom)
	}
	if cfg.ChatWebhook != "" {
		d.Chat = notify.NewChatSender(cfg.ChatWebhook)
		d.Staff = notify.NewChatSender(cfg.ChatWebhook)
	}
	if cfg.PushEndpoint != "" {
		d.Push = notify.NewPushSender(cfg.PushEndpoint, cfg.PushAPIKey)
	}

	svc := &notify.EventConsumer{
		Dispatcher:  d,
		Redis:       rdb,
		Couriers:    &notify.PgCouriers{DB: db},
		ServiceName: cfg.ServiceName + "-notifier",
		Log:         log,
	}

	group := getenv("NOTIFIER_GROUP", "notifier-svc")
	workers := mustAtoi(os.Getenv("NOTIFIER_WORKERS"), "4")

	topics := []string{orders.TopicOrderCreated, orders.TopicStatusChanged, orders.TopicDeliveryReminder}
	for _, topic := range topics {
		cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, topic, workers)
		go func(topic string) {
			log.Infow("notifier consumer started", "group", group, "topic", topic, "workers", workers)
			if err := cons.Start(ctx, svc.HandleMessage); err != nil {
				log.Errorw("consumer exit", "topic", topic, "error", err)
				cancel()
			}
		}(topic)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down notifier...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
