// Package entrypoint wires the gateway together and owns its lifecycle.
package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shelfgate/shelfgate/internal/cache"
	"github.com/shelfgate/shelfgate/internal/config"
	"github.com/shelfgate/shelfgate/internal/database"
	"github.com/shelfgate/shelfgate/internal/database/devices"
	"github.com/shelfgate/shelfgate/internal/database/progress"
	http_controllers "github.com/shelfgate/shelfgate/internal/http"
	"github.com/shelfgate/shelfgate/internal/proxy"
	"github.com/shelfgate/shelfgate/internal/scheduler"
	"github.com/shelfgate/shelfgate/internal/upstream"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for an interrupt signal, then shut down within the configured
	// timeout. In-flight streams get that long to drain.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelfgate v%s", version)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	// Upstream client shared by handlers, proxy and health probe
	client := upstream.New(upstream.Config{
		BaseURL:         cfg.Upstream.BaseURL,
		APIKey:          cfg.Upstream.APIKey,
		Timeout:         cfg.Upstream.Timeout,
		MaxRetries:      cfg.Upstream.MaxRetries,
		RetryDelay:      cfg.Upstream.RetryDelay,
		BreakerFailures: cfg.Upstream.BreakerFailures,
		BreakerCooldown: cfg.Upstream.BreakerCooldown,
	})

	responseCache := cache.New(cfg.Cache.TTL, cfg.Cache.Capacity)
	streamer := proxy.NewStreamer(client, cfg.Covers.Redirect)

	deviceRepo := devices.NewRepository(db.DB)
	progressRepo := progress.NewRepository(db.DB)

	if cfg.Auth.DeviceSecret == "" {
		log.Printf("WARNING: Device secret is not set. All devices are accepted. Set 'DEVICE_SECRET' environment variable to enable authentication.")
	}

	routerCfg := http_controllers.RouterConfig{
		Version:         version,
		Database:        db,
		Client:          client,
		Cache:           responseCache,
		Streamer:        streamer,
		ProgressStore:   progressRepo,
		DeviceStore:     deviceRepo,
		AuthConfig:      cfg.Auth,
		LibraryID:       cfg.Upstream.LibraryID,
		UpstreamBaseURL: cfg.Upstream.BaseURL,
	}

	router := http_controllers.NewRouter(routerCfg)

	healthProbe := scheduler.NewUpstreamHealthScheduler(client, cfg.HealthProbe)
	if err := healthProbe.Start(); err != nil {
		log.Fatalf("Failed to start upstream health probe: %v", err)
	}

	onShutdown := func(ctx context.Context) {
		healthProbe.Stop()
	}

	Serve(router, cfg, onShutdown)
}
