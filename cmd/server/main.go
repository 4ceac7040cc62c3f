package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/deptportal/internal/auth"
	"github.com/mmynk/deptportal/internal/config"
	"github.com/mmynk/deptportal/internal/gateway"
	"github.com/mmynk/deptportal/internal/metrics"
	"github.com/mmynk/deptportal/internal/models"
	"github.com/mmynk/deptportal/internal/server"
	"github.com/mmynk/deptportal/internal/storage/sqlite"
	"github.com/mmynk/deptportal/pkg/logging"
)

func main() {
	envFile := flag.String("env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	authn := auth.NewPasswordAuthenticator(store)
	if cfg.Seed {
		if err := server.Seed(ctx, store, authn, models.DateOf(time.Now()), slog.Default()); err != nil {
			return err
		}
	}

	srv := server.New(store, authn,
		auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		gateway.NewSimulator(slog.Default(), cfg.Currency),
		server.WithLogger(slog.Default()),
		server.WithMetrics(metrics.New()),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h2c.NewHandler(srv.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Fee backend starting", "address", cfg.Addr(), "base_path", server.BasePath)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
