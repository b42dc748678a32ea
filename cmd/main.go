package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/spf13/viper"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/infra"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := applog.NewAppDefaultLogger()

	if err := infra.InitConfig(); err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}
	// Rebuilt so the configured log.level takes effect.
	logger = applog.NewAppDefaultLogger()

	v := validator.New()
	wg := &sync.WaitGroup{}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := infra.InitSourceLedger(ctx, logger, v)
	if err != nil {
		logger.Fatal("Failed to connect to source ledger", "err", err)
	}
	defer source.Close()

	dest, err := infra.InitDestinationLedger(ctx, logger, v)
	if err != nil {
		logger.Fatal("Failed to connect to destination ledger", "err", err)
	}
	defer dest.Close()

	dedup, err := infra.InitDedupStore(ctx, logger, v)
	if err != nil {
		logger.Fatal("Failed to init dedup store", "err", err)
	}

	dispatcher, err := infra.InitDispatcher(logger, v)
	if err != nil {
		logger.Fatal("Failed to init dispatcher", "err", err)
	}

	listener, err := infra.InitListener(logger, wg, v, source, dest, dedup, dispatcher)
	if err != nil {
		logger.Fatal("Failed to init listener", "err", err)
	}

	if err := listener.Start(); err != nil {
		logger.Fatal("Failed to start relay listener", "err", err)
	}

	server := fiber.New()
	infra.InitRoutes(server, listener)
	infra.InitMetrics(server)
	stopPprof := infra.StartPprof(logger, wg)

	addr := ":8080"
	if p := viper.GetString("http.port"); p != "" {
		addr = ":" + p
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Listen(addr); err != nil {
			logger.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	listener.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", "err", err)
	}
	if err := stopPprof(shutdownCtx); err != nil {
		logger.Warn("pprof server shutdown error", "err", err)
	}

	wg.Wait()

	if c, ok := dispatcher.(interface{ Close() }); ok {
		c.Close()
	}
	if c, ok := dedup.(interface{ Close() error }); ok {
		_ = c.Close()
	}

	logger.Info("Shutdown complete")
}
