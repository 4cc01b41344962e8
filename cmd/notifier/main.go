package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-resource-approvals.git/internal/config"
	kafkax "github.com/ariefcatur/go-resource-approvals.git/internal/kafka"
	"github.com/ariefcatur/go-resource-approvals.git/internal/notifier"
	"github.com/ariefcatur/go-resource-approvals.git/internal/postgres"
	"github.com/ariefcatur/go-resource-approvals.git/internal/redisx"
	"github.com/ariefcatur/go-resource-approvals.git/internal/reservations"
	"github.com/joho/godotenv"
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

	// Service: resolve role -> principal, tulis baris notifikasi
	svc := &notifier.Service{
		Directory: &reservations.DirectoryRepo{DB: db},
		Store:     &reservations.NotificationRepo{DB: db},
		Dedup:     &redisx.Deduper{Client: rdb, Service: "notifier"},
	}

	// Consumer
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, reservations.TopicReservationEvents, cfg.NotifierWorkers)

	go func() {
		log.Printf("notifier consumer started: group=%s topic=%s workers=%d",
			cfg.NotifierGroup, reservations.TopicReservationEvents, cfg.NotifierWorkers)
		if err := cons.Start(ctx, svc.HandleReservationEvent); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
}
