package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"asset-tracking-backend/internal/api"
	"asset-tracking-backend/internal/config"
	"asset-tracking-backend/internal/consumer"
	"asset-tracking-backend/internal/evaluator"
	"asset-tracking-backend/internal/gateway"
	"asset-tracking-backend/internal/liveness"
	"asset-tracking-backend/internal/notify"
	"asset-tracking-backend/internal/session"
	"asset-tracking-backend/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	slog.InfoContext(ctx, "Starting service...")

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	db, err := store.Init(ctx, store.Config{
		ConnString:     cfg.DatabaseURL,
		MigrationsPath: cfg.MigrationsPath,
	})
	if err != nil {
		panic(err)
	}
	defer db.Close()

	bus := notify.NewBus()

	gw := gateway.New()
	gw.Attach(bus)

	tracker := liveness.New(liveness.Config{
		Repo:    db,
		Emitter: bus,
	})
	gatekeeper := session.New(session.Config{
		Sessions:  db,
		DeviceID:  cfg.DeviceID,
		StartedAt: time.Now(),
	})

	cons := consumer.New(consumer.Config{
		Brokers:         cfg.KafkaBrokers,
		ConsumerGroupID: cfg.KafkaGroupID,
		ConsumerTopic:   cfg.KafkaTopic,
		Gatekeeper:      gatekeeper,
		Tracker:         tracker,
		Repo:            db,
		Emitter:         bus,
	})
	eval := evaluator.New(evaluator.Config{
		Tracker: tracker,
		Repo:    db,
	})

	wg := sync.WaitGroup{}
	wg.Go(func() {
		cons.Run(ctx)
	})
	wg.Go(func() {
		eval.Run(ctx)
	})

	restAPI := api.New(api.Config{Repo: db})

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Get("/ws", gw.HandleWS)
	r.Post("/session", restAPI.CreateSession)
	r.Get("/session", restAPI.GetSession)
	r.Delete("/session", restAPI.DeleteSession)
	r.Get("/telemetry/{type}", restAPI.GetTelemetry)
	r.Get("/status", restAPI.GetStatus)

	server := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		slog.InfoContext(ctx, "HTTP server listening...", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "HTTP server error", "error", err)
			cancel()
		}
	}()

	go func() {
		<-sigs
		cancel()
	}()

	wg.Wait()

	cons.Close(ctx)
	gw.CloseAll()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	// A restart must never resume a dead session's stream; the admission
	// rules drop pre-start events regardless, but an expired session makes
	// the state unambiguous.
	if err := db.ExpireCurrentSession(shutdownCtx, time.Now()); err != nil {
		slog.ErrorContext(shutdownCtx, "Error expiring session on shutdown", "error", err)
	}
	server.Shutdown(shutdownCtx)
}
