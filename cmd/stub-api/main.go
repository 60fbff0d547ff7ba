package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/mailersend-go/internal/config"
	"github.com/ignite/mailersend-go/internal/pkg/logger"
	"github.com/ignite/mailersend-go/internal/stub"
)

func main() {
	cfg, err := config.LoadFromEnv(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, logger.ParseLevel(cfg.Logging.Level), !cfg.Logging.DisableRedaction)
	log.Warn("STUB API for local testing only: emails are accepted but never delivered")

	delay := 5 * time.Second
	if v := os.Getenv("STUB_PROCESSING_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Error("invalid STUB_PROCESSING_DELAY", "value", v, "error", err)
			os.Exit(1)
		}
		delay = d
	}

	var suppressed []string
	if v := os.Getenv("STUB_SUPPRESSED"); v != "" {
		suppressed = strings.Split(v, ",")
	}

	srv := stub.NewServer(stub.Options{
		Token:           cfg.MailerSend.APIToken,
		ProcessingDelay: delay,
		Suppressed:      suppressed,
		Logger:          log,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("stub listening", "addr", server.Addr, "auth", cfg.MailerSend.APIToken != "")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down stub")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("stub stopped")
}
