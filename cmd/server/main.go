package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirasaad/mileage/infra/initializer"
	"github.com/amirasaad/mileage/pkg/app"
	"github.com/amirasaad/mileage/pkg/config"
	"github.com/amirasaad/mileage/webapi"
	log "github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load(config.GetEnv("ENV_FILE", ".env"))
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	// Initialize all dependencies
	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	a := app.New(deps, cfg)
	defer func() {
		if err := a.Close(); err != nil {
			deps.Logger.Error("failed to close event bus", "error", err)
		}
	}()

	fiberApp := webapi.SetupApp(a)
	return serve(ctx, fiberApp, cfg.Server, deps.Logger)
}

// serve listens until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, fiberApp *fiber.App, srv *config.Server, logger *slog.Logger) error {
	addr := srv.Addr()
	logger.Info("Starting server", "address", addr, "scheme", srv.Scheme)

	errCh := make(chan error, 1)
	go func() {
		errCh <- fiberApp.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	if err := fiberApp.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
