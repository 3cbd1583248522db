package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"vidrelay/config"
	"vidrelay/handlers"
	"vidrelay/internal/database"
	"vidrelay/internal/guard"
	"vidrelay/internal/logging"
	"vidrelay/internal/metacache"
	"vidrelay/internal/stream"
	"vidrelay/services/streaming"
	"vidrelay/services/upstream"
	"vidrelay/utils"
)

func main() {
	settingsPath := flag.String("config", "settings.json", "path to the settings file")
	flag.Parse()

	if err := run(*settingsPath); err != nil {
		log.Fatal(err)
	}
}

func run(settingsPath string) error {
	cfg := config.NewManager(settingsPath)
	settings, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	logging.Setup(settings.Server.LogLevel, settings.Server.LogFile)

	db, err := database.NewDB(database.Config{DatabasePath: settings.Database.Path})
	if err != nil {
		return fmt.Errorf("open library database: %w", err)
	}
	defer db.Close()

	backend := upstream.NewHTTPProvider(settings.Upstream.BaseURL, settings.Upstream.APIKey)
	var provider upstream.Provider = backend
	if !settings.Upstream.RangedReads {
		adapter, err := upstream.NewWholeObjectAdapter(backend, settings.Upstream.MaxObjectBytes, 0)
		if err != nil {
			return fmt.Errorf("build whole-object fallback: %w", err)
		}
		log.Printf("[vidrelay] upstream has no ranged reads, buffering whole objects up to %d bytes", settings.Upstream.MaxObjectBytes)
		provider = adapter
	}
	cache := metacache.New(provider, time.Duration(settings.Streaming.MetadataTTLSeconds)*time.Second)
	relay := &stream.Relay{
		ChunkSize:    settings.Streaming.ChunkSizeBytes,
		ChunkTimeout: time.Duration(settings.Streaming.ChunkReadTimeoutSeconds) * time.Second,
		ReadAhead:    settings.Streaming.ReadAhead,
	}
	streamingSvc := streaming.NewService(provider, cache, relay)
	requestGuard := guard.New(time.Duration(settings.Streaming.LockTTLSeconds) * time.Second)

	streamHandler := handlers.NewStreamHandler(streamingSvc, requestGuard)
	libraryHandler := handlers.NewLibraryHandler(db.Library, provider, streamingSvc)

	limiter := utils.NewRateLimiter(settings.Streaming.RateLimitPerMinute, settings.Streaming.RateLimitBurst)

	router := utils.NewRouter()
	streamRoute := router.PathPrefix("/api/stream").Subrouter()
	streamRoute.Use(limiter.Middleware)
	streamRoute.HandleFunc("/{id}", streamHandler.Stream).Methods(http.MethodGet, http.MethodHead, http.MethodOptions)

	router.HandleFunc("/api/library", libraryHandler.List).Methods(http.MethodGet)
	router.HandleFunc("/api/library", libraryHandler.Create).Methods(http.MethodPost)
	router.HandleFunc("/api/library/{id}", libraryHandler.Delete).Methods(http.MethodDelete)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", settings.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: streams legitimately run for the length of a movie.
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg conc.WaitGroup
	wg.Go(func() {
		log.Printf("[vidrelay] listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[vidrelay] server error: %v", err)
		}
	})

	<-ctx.Done()
	log.Printf("[vidrelay] shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	wg.Wait()
	return nil
}
