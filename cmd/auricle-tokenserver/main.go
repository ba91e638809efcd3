package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/auricle-ai/auricle-go/internal/config"
	"github.com/auricle-ai/auricle-go/internal/tokenserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	server, err := tokenserver.New(tokenserver.Config{
		LiveKitURL:       cfg.LiveKitURL,
		LiveKitAPIKey:    cfg.LiveKitAPIKey,
		LiveKitAPISecret: cfg.LiveKitAPISecret,
		TokenTTL:         cfg.TokenTTL,
		APIKey:           cfg.APIKey,
	})
	if err != nil {
		log.Fatalf("token server init failed: %v", err)
	}

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("token server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
