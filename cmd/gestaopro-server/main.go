package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaopro/gestaopro-server/internal/api"
	"github.com/gestaopro/gestaopro-server/internal/config"
	"github.com/gestaopro/gestaopro-server/internal/events"
	"github.com/gestaopro/gestaopro-server/internal/storage"
)

func main() {
	// Command line flags
	var configFile string
	var validateOnly bool
	flag.StringVar(&configFile, "config", "config/gestaopro-server.yml", "Configuration file path")
	flag.BoolVar(&validateOnly, "validate", false, "Validate configuration and exit")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load configuration
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if validateOnly {
		cfg.PrintConfigSummary()
		return
	}

	// Set log level and format
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open storage
	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	// Optional: change events over NATS
	var publisher events.Publisher
	var nc *nats.Conn
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Connecting to NATS...")

		nc, err = events.Connect(&cfg.NATS, cfg.Server.Name)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to NATS, continuing without change events")
		} else {
			log.Info().Msg("Connected to NATS")
			publisher = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix)
		}
	} else {
		log.Info().Msg("NATS not configured, change events disabled")
	}

	apiServer := api.NewRESTServer(cfg, store, publisher)

	var wg sync.WaitGroup

	// Start API server
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := apiServer.ListenAndServe(cfg.API.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("REST API server failed")
		}
	}()

	// Wait for signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown API server gracefully")
	}

	wg.Wait()

	if nc != nil {
		if err := nc.Drain(); err != nil {
			log.Warn().Err(err).Msg("Failed to drain NATS connection")
			nc.Close()
		}
	}

	log.Info().Msg("GestãoPro server stopped")
}

// openStore opens the configured storage backend and applies migrations
// when requested
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		return storage.NewMemoryStore(), nil
	}

	store, err := storage.NewPostgresStore(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Connected to database")

	if cfg.Database.MigrateOnStart {
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
	}

	return store, nil
}
