package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/satulemari/partner-service/config"
	"github.com/satulemari/partner-service/internal/catalog"
	"github.com/satulemari/partner-service/internal/listing"
	"github.com/satulemari/partner-service/internal/llm"
	"github.com/satulemari/partner-service/internal/partner"
	"github.com/satulemari/partner-service/internal/server"
	"github.com/satulemari/partner-service/internal/storage"
)

const (
	logFileName = "satulemari-partner.log"

	pruneInterval = 10 * time.Minute
	draftMaxIdle  = 2 * time.Hour
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	// JOURNAL_STREAM is set by systemd; journald keeps the logs there.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fatal("failed to open log file: %v", err)
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))

		log.Info().Str("logFile", logFileName).Msg("logging to file")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("invalid configuration: %v", err)
	}

	// Partner sessions are only stored when a key is configured; the
	// analysis cache works either way.
	var encryptionKey []byte
	if cfg.TokenKey != "" {
		encryptionKey, err = storage.DeriveKey(cfg.TokenKey)
		if err != nil {
			fatal("failed to derive encryption key: %v", err)
		}
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath, encryptionKey)
	if err != nil {
		fatal("failed to initialize store: %v", err)
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("store initialized")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var analyzer llm.Analyzer
	if cfg.AIFeatureEnabled() {
		gemini, err := llm.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			fatal("failed to initialize gemini analyzer: %v", err)
		}
		analyzer = llm.NewCachedAnalyzer(gemini, store, cfg.AnalysisCacheTTL)
		log.Info().Str("model", cfg.GeminiModel).Msg("gemini analyzer initialized")
	} else {
		log.Info().Bool("enabled", cfg.AIEnabled).Msg("AI analysis disabled")
	}
	analysis := llm.NewService(analyzer, cfg.AIEnabled, cfg.AnalysisTimeout)

	var analyze listing.AnalyzeFunc
	if analysis.Enabled() {
		analyze = analysis.Analyze
	}
	drafts := listing.NewRegistry(analyze, cfg.AnalysisTimeout)
	defer drafts.Shutdown()

	backend := partner.NewClient(partner.ClientOpts{
		BaseURL:     cfg.BackendBaseURL,
		Credentials: partner.BearerToken{},
		Timeout:     cfg.RequestTimeout,
	})

	products, err := catalog.Load()
	if err != nil {
		fatal("failed to load product catalog: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           server.New(cfg, analysis, drafts, backend, products).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + cfg.AnalysisTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("backend", cfg.BackendBaseURL).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		runPruner(ctx, drafts, store, cfg.AnalysisCacheTTL)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}

// runPruner periodically drops idle drafts and expired cache entries.
func runPruner(ctx context.Context, drafts *listing.Registry, store *storage.SQLiteStore, cacheTTL time.Duration) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := drafts.PruneIdle(draftMaxIdle); n > 0 {
				log.Info().Int("count", n).Msg("pruned idle drafts")
			}
			if cacheTTL <= 0 {
				continue
			}
			n, err := store.PruneAnalysisCache(cacheTTL)
			if err != nil {
				log.Warn().Err(err).Msg("failed to prune analysis cache")
			} else if n > 0 {
				log.Info().Int64("count", n).Msg("pruned analysis cache")
			}
		}
	}
}

func fatal(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Error().Msg(msg)
	os.Exit(1)
}
