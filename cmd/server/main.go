package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bodycheck/internal/analysis"
	"bodycheck/internal/config"
	"bodycheck/internal/history"
	"bodycheck/internal/httpapi"
	"bodycheck/internal/report"
	"bodycheck/internal/storage"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, closeStorage, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeStorage()

	analyzer, closeAnalyzer, err := analysis.New(ctx, cfg)
	if err != nil {
		log.Fatalf("analysis: %v", err)
	}
	defer closeAnalyzer()

	var sharer report.Sharer
	if cfg.SendGridAPIKey != "" {
		sharer = report.NewEmailSharer(cfg.SendGridAPIKey, cfg.ShareFromEmail)
	} else {
		log.Println("SENDGRID_API_KEY not set, report sharing disabled")
	}

	server := httpapi.NewServer(cfg, history.New(kv, cfg.StorageImageWidth), analyzer, sharer)

	addr := ":" + cfg.Port
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Router(ctx),
	}

	go func() {
		log.Printf("Using provider: %s, storage: %s", cfg.AIProvider, cfg.StorageBackend)
		log.Printf("listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	log.Printf("shutdown complete")
}
