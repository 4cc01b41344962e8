package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-resource-approvals.git/internal/availability"
	"github.com/ariefcatur/go-resource-approvals.git/internal/config"
	"github.com/ariefcatur/go-resource-approvals.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-resource-approvals.git/internal/kafka"
	"github.com/ariefcatur/go-resource-approvals.git/internal/postgres"
	"github.com/ariefcatur/go-resource-approvals.git/internal/redisx"
	"github.com/ariefcatur/go-resource-approvals.git/internal/reservations"
	"github.com/ariefcatur/go-resource-approvals.git/internal/workflow"
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
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer: semua event transisi ke satu topic
	prod := kafkax.NewProducer(cfg.KafkaBrokers, reservations.TopicReservationEvents, 1024)
	prod.Start(ctx)

	// Engine + workflow
	requests := &reservations.RequestRepo{DB: db}
	engine := &availability.Engine{
		Catalog: &reservations.ResourceRepo{DB: db},
		Store:   requests,
	}
	wf := &workflow.Service{
		Engine:      engine,
		Store:       requests,
		Audit:       &reservations.AuditRepo{DB: db},
		Producer:    prod,
		ServiceName: cfg.ServiceName,
	}

	router := httpx.NewRouter()
	rh := &httpx.ReservationsHandler{
		Workflow: wf,
		Engine:   engine,
		Requests: requests,
		Cache:    &redisx.KV{Client: rdb},
	}
	rh.Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // tutup inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
